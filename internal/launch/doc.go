// Package launch composes the registry client, the layer materializer and
// the sandbox into the two commands the launcher offers.
//
// [Fetch] resolves an image reference to the first layer of its linux/amd64
// manifest (or whichever platform is configured). [Pull] materializes that
// layer into a directory. [Run] materializes it into a fresh scratch root
// and executes a command there, returning the child's exit status.
//
// The registry exchange of a fetch is strictly sequential: authenticate,
// list platform manifests, read the selected manifest, download the layer.
// When retries are configured, transient failures restart the whole
// exchange with exponential backoff; protocol violations never retry.
//
// Example usage:
//
//	result, err := launch.Run(ctx, launch.Options{
//	    Source: launch.Source{
//	        Registry: registry.Options{BaseURL: "https://registry.hub.docker.com", Namespace: "library"},
//	        Platform: "linux/amd64",
//	    },
//	    Image:   "alpine:3.20",
//	    Command: "/bin/echo",
//	    Args:    []string{"hello"},
//	})
//	if err != nil {
//	    return err
//	}
//	os.Exit(result.Status.ExitCode())
package launch
