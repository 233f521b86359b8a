package registry

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/containerd/errdefs"
)

var (
	ErrHTTP                = errors.New("http error")
	ErrUnhandledStatusCode = errors.New("unhandled status code")
	ErrAuth                = errors.New("auth error")
	ErrManifest            = errors.New("unsupported manifest")
	ErrDigestMismatch      = errors.New("digest mismatch")

	ErrInvalidURL        = fmt.Errorf("%w: invalid registry url", ErrAuth)
	ErrInvalidAuthType   = fmt.Errorf("%w: invalid auth type", ErrAuth)
	ErrMissingParamName  = fmt.Errorf("%w: missing www-authenticate parameter name", ErrAuth)
	ErrMissingParamValue = fmt.Errorf("%w: missing www-authenticate parameter value", ErrAuth)
	ErrMissingRealm      = fmt.Errorf("%w: missing www-authenticate realm parameter", ErrAuth)
	ErrMissingChallenge  = fmt.Errorf("%w: missing www-authenticate header", ErrAuth)
	ErrMissingToken      = fmt.Errorf("%w: token response carries no token", ErrAuth)

	ErrInvalidSchemaVersion = fmt.Errorf("%w: invalid schema version", ErrManifest)
	ErrMediaTypeMismatch    = fmt.Errorf("%w: invalid media type", ErrManifest)
)

// A non-success HTTP status returned by the registry or token service.
//
// A StatusError matches [ErrHTTP] when it comes from a data request and
// [ErrUnhandledStatusCode] when it comes from the authentication probe. It
// also matches the errdefs category implied by the code, so callers can use
// errdefs.IsNotFound and friends.
type StatusError struct {
	Code int    // HTTP status code.
	URL  string // Request URL, without credentials.
	kind error  // ErrHTTP or ErrUnhandledStatusCode.
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %d %s (%s)", e.kind, e.Code, http.StatusText(e.Code), e.URL)
}

func (e *StatusError) Unwrap() []error {
	errs := []error{e.kind}
	if category := statusCategory(e.Code); category != nil {
		errs = append(errs, category)
	}
	return errs
}

// Maps an HTTP status code onto an errdefs category, or nil.
func statusCategory(code int) error {
	switch {
	case code == http.StatusNotFound:
		return errdefs.ErrNotFound
	case code == http.StatusUnauthorized:
		return errdefs.ErrUnauthenticated
	case code == http.StatusForbidden:
		return errdefs.ErrPermissionDenied
	case code == http.StatusTooManyRequests:
		return errdefs.ErrResourceExhausted
	case code >= 500:
		return errdefs.ErrUnavailable
	}
	return nil
}
