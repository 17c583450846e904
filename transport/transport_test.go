package transport_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/umich-tech-consulting/tdxapi/transport"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// echoServer records the last request it saw and returns 200.
type echoServer struct {
	method string
	path   string
	auth   string
	body   []byte
}

func newEchoServer(t *testing.T) (*echoServer, *httptest.Server) {
	t.Helper()
	e := &echoServer{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.method = r.Method
		e.path = r.URL.Path
		e.auth = r.Header.Get("Authorization")
		e.body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return e, srv
}

func TestSandboxPathSegment(t *testing.T) {
	e, srv := newEchoServer(t)
	c := transport.New("tdx.example.edu", true, discardLogger(), transport.WithBaseURL(srv.URL))

	if _, err := c.Get(context.Background(), "applications"); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if e.path != "/SBTDWebApi/api/applications" {
		t.Errorf("expected sandbox path, got %q", e.path)
	}
}

func TestProductionPathSegment(t *testing.T) {
	e, srv := newEchoServer(t)
	c := transport.New("tdx.example.edu", false, discardLogger(), transport.WithBaseURL(srv.URL))

	if _, err := c.Get(context.Background(), "locations"); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if e.path != "/TDWebApi/api/locations" {
		t.Errorf("expected production path, got %q", e.path)
	}
}

func TestBearerHeaderAttached(t *testing.T) {
	e, srv := newEchoServer(t)
	c := transport.New("tdx.example.edu", true, discardLogger(), transport.WithBaseURL(srv.URL))
	c.SetToken("secret-token")

	if _, err := c.Get(context.Background(), "auth/getuser"); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if e.auth != "Bearer secret-token" {
		t.Errorf("expected bearer header, got %q", e.auth)
	}
}

func TestNoBearerHeaderWhenAuthNotRequired(t *testing.T) {
	e, srv := newEchoServer(t)
	c := transport.New("tdx.example.edu", true, discardLogger(), transport.WithBaseURL(srv.URL))
	c.SetToken("secret-token")

	if _, err := c.Dispatch(context.Background(), http.MethodGet, "auth", false, nil); err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if e.auth != "" {
		t.Errorf("expected no auth header, got %q", e.auth)
	}
}

func TestPostMarshalsBody(t *testing.T) {
	e, srv := newEchoServer(t)
	c := transport.New("tdx.example.edu", true, discardLogger(), transport.WithBaseURL(srv.URL))

	if _, err := c.Post(context.Background(), "people/search", map[string]string{"AlternateID": "uniqname"}); err != nil {
		t.Fatalf("Post() error: %v", err)
	}
	if e.method != http.MethodPost {
		t.Errorf("expected POST, got %s", e.method)
	}
	if string(e.body) != `{"AlternateID":"uniqname"}` {
		t.Errorf("unexpected body: %s", e.body)
	}
}

func TestUnsupportedMethod(t *testing.T) {
	_, srv := newEchoServer(t)
	c := transport.New("tdx.example.edu", true, discardLogger(), transport.WithBaseURL(srv.URL))

	_, err := c.Dispatch(context.Background(), http.MethodDelete, "assets/1", true, nil)
	var unsupported *transport.UnsupportedMethodError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedMethodError, got %v", err)
	}
	if unsupported.Method != http.MethodDelete {
		t.Errorf("expected method DELETE in error, got %q", unsupported.Method)
	}
}

func TestCommunicationFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listening

	c := transport.New("tdx.example.edu", true, discardLogger(), transport.WithBaseURL(srv.URL))
	_, err := c.Get(context.Background(), "applications")
	var comm *transport.CommunicationError
	if !errors.As(err, &comm) {
		t.Fatalf("expected CommunicationError, got %v", err)
	}
	if comm.Endpoint != "applications" {
		t.Errorf("expected endpoint in error, got %q", comm.Endpoint)
	}
}

func TestResponseErrClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "2xx is nil",
			status: http.StatusCreated,
			check: func(t *testing.T, err error) {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
			},
		},
		{
			name:   "401 is ErrNotAuthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, transport.ErrNotAuthorized) {
					t.Errorf("expected ErrNotAuthorized, got %v", err)
				}
			},
		},
		{
			name:   "500 is RequestError",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, err error) {
				var reqErr *transport.RequestError
				if !errors.As(err, &reqErr) {
					t.Fatalf("expected RequestError, got %v", err)
				}
				if reqErr.Status != http.StatusInternalServerError {
					t.Errorf("expected status 500, got %d", reqErr.Status)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &transport.Response{Status: tt.status, Body: []byte("detail")}
			tt.check(t, resp.Err())
		})
	}
}

func TestContextCancellation(t *testing.T) {
	_, srv := newEchoServer(t)
	c := transport.New("tdx.example.edu", true, discardLogger(), transport.WithBaseURL(srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Get(ctx, "applications")
	var comm *transport.CommunicationError
	if !errors.As(err, &comm) {
		t.Fatalf("expected CommunicationError for cancelled context, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected wrapped context.Canceled, got %v", err)
	}
}
