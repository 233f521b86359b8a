package registry

// Media types used by Docker-compatible registries. The OCI equivalents are
// available from the image-spec package.
const (
	MediaTypeManifestList = "application/vnd.docker.distribution.manifest.list.v2+json"
	MediaTypeManifest     = "application/vnd.docker.distribution.manifest.v2+json"
	MediaTypeConfig       = "application/vnd.docker.container.image.v1+json"
	MediaTypeLayerGzip    = "application/vnd.docker.image.rootfs.diff.tar.gzip"
)

// Schema version every supported manifest declares.
const schemaVersion = 2

// Body returned by a token service.
//
// Docker Hub fills both fields; some registries only send access_token.
type tokenResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}

// Returns the token to present, preferring the "token" field.
func (r tokenResponse) value() string {
	if r.Token != "" {
		return r.Token
	}
	return r.AccessToken
}
