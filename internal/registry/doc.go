// Package registry implements the pull side of the OCI distribution protocol.
//
// A [Session] is established once per image pull. Establishing a session
// probes the tag's manifest endpoint without credentials; a 401 answer is
// followed by the bearer-token exchange described by the registry's
// WWW-Authenticate challenge (see [Negotiate] and [ParseWWWAuthenticate]).
// The resulting token, if any, is presented on every subsequent request of
// the session and is never refreshed.
//
// Requests are strictly sequential. Nothing is retried and no timeout is
// applied beyond the transport's own; callers that want retries wrap the
// whole exchange.
//
// Example usage:
//
//	s, err := registry.Establish(ctx, registry.Options{
//	    BaseURL:   "https://registry.hub.docker.com",
//	    Namespace: "library",
//	}, "alpine", "latest")
//	if err != nil {
//	    return err
//	}
//
//	descs, err := s.ListPlatformManifests(ctx)
//	if err != nil {
//	    return err
//	}
//
//	manifest, err := s.ReadImageManifest(ctx, descs[0])
//	if err != nil {
//	    return err
//	}
//
//	layer, err := s.ReadBlob(ctx, manifest.Layers[0])
package registry
