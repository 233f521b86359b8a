package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/containerd/errdefs"

	"github.com/cruciblehq/crate/internal/registry/registrytest"
)

func TestParseWWWAuthenticate(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{
			name:   "bare realm",
			header: "Bearer realm=hello",
			want:   "hello",
		},
		{
			name:   "unquoted realm",
			header: `Bearer realm=https://auth.docker.io/token,service="registry.docker.io"`,
			want:   "https://auth.docker.io/token?service=registry.docker.io",
		},
		{
			name:   "quoted realm",
			header: `Bearer realm="https://auth.docker.io/token",service="registry.docker.io"`,
			want:   "https://auth.docker.io/token?service=registry.docker.io",
		},
		{
			name:   "realm last",
			header: `Bearer service="registry.docker.io",realm="https://auth.docker.io/token"`,
			want:   "https://auth.docker.io/token?service=registry.docker.io",
		},
		{
			name:   "keys sorted",
			header: `Bearer realm="https://auth.docker.io/token",service="registry.docker.io",scope="repository:samalba/my-app:pull"`,
			want:   "https://auth.docker.io/token?scope=repository:samalba/my-app:pull&service=registry.docker.io",
		},
		{
			name:   "keys sorted regardless of order",
			header: `Bearer scope="repository:samalba/my-app:pull",realm="https://auth.docker.io/token",service="registry.docker.io"`,
			want:   "https://auth.docker.io/token?scope=repository:samalba/my-app:pull&service=registry.docker.io",
		},
		{
			name:   "empty items skipped",
			header: `Bearer realm="r",,service="s",`,
			want:   "r?service=s",
		},
		{
			name:   "whitespace trimmed",
			header: `Bearer realm="r", service = "s"`,
			want:   "r?service=s",
		},
		{
			name:   "last duplicate wins",
			header: `Bearer realm="a",realm="b"`,
			want:   "b",
		},
		{
			name:   "value containing equals",
			header: `Bearer realm="r",scope="a=b"`,
			want:   "r?scope=a=b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWWWAuthenticate(tt.header)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseWWWAuthenticate(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestParseWWWAuthenticateInvalid(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"empty", "", ErrInvalidAuthType},
		{"basic", `Basic realm="r"`, ErrInvalidAuthType},
		{"lowercase scheme", `bearer realm="r"`, ErrInvalidAuthType},
		{"no params", "Bearer ", ErrMissingRealm},
		{"no realm", `Bearer service="s"`, ErrMissingRealm},
		{"missing value", "Bearer realm", ErrMissingParamValue},
		{"missing name", `Bearer ="x",realm="r"`, ErrMissingParamName},
		{"missing name after realm", `Bearer realm=r,=x`, ErrMissingParamName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWWWAuthenticate(tt.header)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ParseWWWAuthenticate(%q) error = %v, want %v", tt.header, err, tt.want)
			}
			if !errors.Is(err, ErrAuth) {
				t.Fatalf("error %v does not match ErrAuth", err)
			}
		})
	}
}

func TestNegotiateAnonymous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("probe carried credentials")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	token, ok, err := Negotiate(context.Background(), srv.Client(), "", srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || token != "" {
		t.Fatalf("Negotiate() = %q, %v, want no token", token, ok)
	}
}

func TestNegotiateToken(t *testing.T) {
	reg := registrytest.New(t, "s3cret")

	token, ok, err := Negotiate(context.Background(), http.DefaultClient, "", reg.URL+"/v2/library/alpine/manifests/latest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || token != "s3cret" {
		t.Fatalf("Negotiate() = %q, %v, want %q, true", token, ok, "s3cret")
	}
	if got := reg.Hits("token"); got != 1 {
		t.Fatalf("token hits = %d, want 1", got)
	}
}

func TestNegotiateAccessTokenFallback(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			w.Write([]byte(`{"access_token":"fallback"}`))
			return
		}
		w.Header().Set("WWW-Authenticate", `Bearer realm="`+srv.URL+`/token"`)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	token, ok, err := Negotiate(context.Background(), srv.Client(), "", srv.URL+"/v2/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || token != "fallback" {
		t.Fatalf("Negotiate() = %q, %v, want %q, true", token, ok, "fallback")
	}
}

func TestNegotiateFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "missing challenge",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			want: ErrMissingChallenge,
		},
		{
			name: "basic challenge",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("WWW-Authenticate", `Basic realm="x"`)
				w.WriteHeader(http.StatusUnauthorized)
			},
			want: ErrInvalidAuthType,
		},
		{
			name: "unhandled status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: ErrUnhandledStatusCode,
		},
		{
			name: "not found probe",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			want: errdefs.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, _, err := Negotiate(context.Background(), srv.Client(), "", srv.URL)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Negotiate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNegotiateTokenServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"forbidden", http.StatusForbidden, "", ErrHTTP},
		{"empty token", http.StatusOK, `{}`, ErrMissingToken},
		{"bad json", http.StatusOK, `not json`, ErrHTTP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var srv *httptest.Server
			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/token" {
					w.WriteHeader(tt.status)
					w.Write([]byte(tt.body))
					return
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="`+srv.URL+`/token"`)
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer srv.Close()

			_, _, err := Negotiate(context.Background(), srv.Client(), "", srv.URL+"/v2/")
			if !errors.Is(err, tt.want) {
				t.Fatalf("Negotiate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStatusErrorCategories(t *testing.T) {
	tests := []struct {
		code int
		is   func(error) bool
	}{
		{http.StatusNotFound, errdefs.IsNotFound},
		{http.StatusUnauthorized, errdefs.IsUnauthorized},
		{http.StatusForbidden, errdefs.IsPermissionDenied},
		{http.StatusTooManyRequests, errdefs.IsResourceExhausted},
		{http.StatusBadGateway, errdefs.IsUnavailable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			err := &StatusError{Code: tt.code, URL: "http://example", kind: ErrHTTP}
			if !tt.is(err) {
				t.Fatalf("status %d does not map to its errdefs category", tt.code)
			}
			if !errors.Is(err, ErrHTTP) {
				t.Fatalf("status %d does not match ErrHTTP", tt.code)
			}
		})
	}
}
