package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient points a client at a TLS test server, mirroring the real
// gateway's self-signed certificate setup.
func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewTLSServer(handler)
	client := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))
	return client, srv
}

func TestRequest_HTTPErrorYieldsTypedError(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no bridge", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := client.request(context.Background(), http.MethodGet, "/iserver/accounts", nil, 0)
	if err == nil {
		t.Fatal("expected error for 503 response")
	}

	var gwErr *Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("error type = %T, want *gateway.Error", err)
	}
	if gwErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", gwErr.StatusCode)
	}
	if gwErr.Endpoint != "/iserver/accounts" {
		t.Errorf("endpoint = %s, want /iserver/accounts", gwErr.Endpoint)
	}
}

func TestRequest_TransportFailureHasStatusZero(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := client.request(context.Background(), http.MethodGet, "/iserver/accounts", nil, 0)

	var gwErr *Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("error type = %T, want *gateway.Error", err)
	}
	if gwErr.StatusCode != 0 {
		t.Errorf("transport failure status = %d, want 0", gwErr.StatusCode)
	}
}

func TestRequest_SeeOtherRewritesPostToGet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/iserver/auth/status", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/landed", http.StatusSeeOther)
	})
	mux.HandleFunc("/landed", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("redirected method = %s, want GET", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if len(body) != 0 {
			t.Errorf("redirected request still carries a body: %q", body)
		}
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})

	client, srv := newTestClient(mux)
	defer srv.Close()

	data, err := client.request(context.Background(), http.MethodPost, "/iserver/auth/status",
		map[string]string{"probe": "x"}, 0)
	if err != nil {
		t.Fatalf("request returned error: %v", err)
	}
	if string(data) != "{\"ok\":true}\n" {
		t.Errorf("unexpected body after redirect: %q", data)
	}
}

func TestRequest_TemporaryRedirectPreservesMethodAndBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/iserver/reply/abc", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/v2/reply", http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("/v2/reply", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("redirected method = %s, want POST preserved", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"confirmed":true}` {
			t.Errorf("redirected body = %q, want original payload", body)
		}
		w.Write([]byte(`{}`))
	})

	client, srv := newTestClient(mux)
	defer srv.Close()

	_, err := client.request(context.Background(), http.MethodPost, "/iserver/reply/abc",
		map[string]bool{"confirmed": true}, 0)
	if err != nil {
		t.Fatalf("request returned error: %v", err)
	}
}

func TestRequest_RedirectLoopIsCapped(t *testing.T) {
	hops := 0
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops++
		http.Redirect(w, r, fmt.Sprintf("/hop/%d", hops), http.StatusFound)
	}))
	defer srv.Close()

	_, err := client.request(context.Background(), http.MethodGet, "/hop/0", nil, 0)

	var gwErr *Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("error type = %T, want *gateway.Error", err)
	}
	if gwErr.StatusCode != 0 {
		t.Errorf("redirect-cap status = %d, want 0", gwErr.StatusCode)
	}
	if hops > maxRedirects+1 {
		t.Errorf("followed %d hops, cap is %d", hops, maxRedirects)
	}
}

func TestRequest_RedirectWithoutLocationFails(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	_, err := client.request(context.Background(), http.MethodGet, "/somewhere", nil, 0)

	var gwErr *Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("error type = %T, want *gateway.Error", err)
	}
	if gwErr.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want 302", gwErr.StatusCode)
	}
}
