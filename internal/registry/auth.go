package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
)

// Prefix every supported challenge starts with. Matching is case-sensitive.
const bearerPrefix = "Bearer "

// Runs the challenge/response exchange against a probe URL.
//
// The probe is an unauthenticated GET. A 200 answer means the resource is
// public and no token is returned (ok is false). A 401 answer must carry a
// WWW-Authenticate bearer challenge; the token service it names is queried
// without credentials and its token is returned. Any other status is an
// [ErrUnhandledStatusCode] error carrying the code.
func Negotiate(ctx context.Context, client *http.Client, userAgent, probeURL string) (token string, ok bool, err error) {
	resp, err := send(ctx, client, userAgent, probeURL, "", nil)
	if err != nil {
		return "", false, err
	}
	defer discard(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		slog.Debug("registry allows anonymous access", "url", probeURL)
		return "", false, nil

	case http.StatusUnauthorized:
		challenge := resp.Header.Get("WWW-Authenticate")
		if challenge == "" {
			return "", false, ErrMissingChallenge
		}

		tokenURL, err := ParseWWWAuthenticate(challenge)
		if err != nil {
			return "", false, err
		}

		token, err := fetchToken(ctx, client, userAgent, tokenURL)
		if err != nil {
			return "", false, err
		}
		return token, true, nil

	default:
		return "", false, &StatusError{Code: resp.StatusCode, URL: probeURL, kind: ErrUnhandledStatusCode}
	}
}

// Requests a token from the token service.
func fetchToken(ctx context.Context, client *http.Client, userAgent, tokenURL string) (string, error) {
	slog.Debug("requesting registry token", "url", tokenURL)

	resp, err := send(ctx, client, userAgent, tokenURL, "", nil)
	if err != nil {
		return "", err
	}
	defer discard(resp)

	if err := checkStatus(resp, tokenURL); err != nil {
		return "", err
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode token response: %w", ErrHTTP, err)
	}

	token := body.value()
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// Converts a WWW-Authenticate bearer challenge into a token request URL.
//
// The header must start with "Bearer ". The rest is a comma-separated list
// of key=value pairs whose values may be wrapped in double quotes; empty
// items are skipped and the last occurrence of a key wins. The realm is
// mandatory and becomes the base URL. All other pairs are appended as a
// query string in lexicographic key order, so equal challenges always
// produce byte-identical URLs regardless of parameter order. Values are
// copied verbatim, without percent-encoding.
func ParseWWWAuthenticate(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrInvalidAuthType
	}

	params := make(map[string]string)
	for part := range strings.SplitSeq(header[len(bearerPrefix):], ",") {
		if part == "" {
			continue
		}

		name, value, found := strings.Cut(part, "=")
		if !found {
			return "", fmt.Errorf("%w: %q", ErrMissingParamValue, part)
		}

		name = strings.TrimSpace(name)
		if name == "" {
			return "", fmt.Errorf("%w: %q", ErrMissingParamName, part)
		}

		params[name] = strings.Trim(strings.TrimSpace(value), `"`)
	}

	realm, ok := params["realm"]
	if !ok {
		return "", ErrMissingRealm
	}
	delete(params, "realm")

	var b strings.Builder
	b.WriteString(realm)
	for i, name := range slices.Sorted(maps.Keys(params)) {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(params[name])
	}

	return b.String(), nil
}
