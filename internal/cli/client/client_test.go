package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", WithHTTPClient(srv.Client()))
}

func TestSignIn(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/sign-in/email" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req SignInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.Email != "ada@example.com" || req.Password != "secret-pass" {
			t.Errorf("unexpected credentials: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"redirect":false,"token":"tok-1","user":{"id":"u1","name":"Ada","email":"ada@example.com"}}`))
	})

	resp, err := c.SignIn(context.Background(), "ada@example.com", "secret-pass")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if resp.Token != "tok-1" || resp.User.Email != "ada@example.com" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestSignIn_APIError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid email or password"}`))
	})

	_, err := c.SignIn(context.Background(), "ada@example.com", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "Invalid email or password" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestGetSession(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/get-session" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			_, _ = w.Write([]byte(`null`))
			return
		}
		_, _ = w.Write([]byte(`{"session":{"id":"s1","userId":"u1","expiresAt":"2030-01-02T03:04:05Z"},"user":{"id":"u1","name":"Ada","email":"ada@example.com"}}`))
	})

	session, err := c.GetSession(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if session == nil {
		t.Fatal("expected a session")
	}
	if session.ID != "s1" || session.User.Email != "ada@example.com" || session.ExpiresAt.Year() != 2030 {
		t.Errorf("unexpected session: %+v", session)
	}

	session, err = c.GetSession(context.Background(), "stale")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if session != nil {
		t.Errorf("expected nil session for unknown token, got %+v", session)
	}
}

func TestSignOut(t *testing.T) {
	var calls int
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/sign-out" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			t.Errorf("missing bearer token")
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	if err := c.SignOut(context.Background(), "tok-1"); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestSignOut_ServerError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	err := c.SignOut(context.Background(), "tok-1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 APIError, got %v", err)
	}
	if apiErr.Message != "boom" {
		t.Errorf("Message = %q, want %q", apiErr.Message, "boom")
	}
}
