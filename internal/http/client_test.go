package http

import (
	"context"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"syscall"
	"testing"
)

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("payload"))
		case "/missing":
			nethttp.Error(w, "gone", nethttp.StatusNotFound)
		default:
			nethttp.Error(w, "boom", nethttp.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient()

	t.Run("success", func(t *testing.T) {
		data, err := c.Get(context.Background(), srv.URL+"/ok")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "payload" {
			t.Errorf("got %q, want %q", data, "payload")
		}
	})

	t.Run("non-2xx yields StatusError", func(t *testing.T) {
		_, err := c.Get(context.Background(), srv.URL+"/missing")
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected *StatusError, got %T: %v", err, err)
		}
		if statusErr.StatusCode != nethttp.StatusNotFound {
			t.Errorf("StatusCode = %d, want 404", statusErr.StatusCode)
		}
	})
}

func TestClient_GetJSON(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path == "/json" {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Write([]byte(`{"name":"ok"}`))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not found</html>"))
	}))
	defer srv.Close()

	c := NewClient()

	t.Run("decodes JSON", func(t *testing.T) {
		var v struct {
			Name string `json:"name"`
		}
		raw, err := c.GetJSON(context.Background(), srv.URL+"/json", &v)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.Name != "ok" {
			t.Errorf("Name = %q, want ok", v.Name)
		}
		if string(raw) != `{"name":"ok"}` {
			t.Errorf("raw body = %q", raw)
		}
	})

	t.Run("rejects non-JSON content type", func(t *testing.T) {
		var v any
		if _, err := c.GetJSON(context.Background(), srv.URL+"/html", &v); err == nil {
			t.Error("expected error for HTML content type")
		}
	})
}

func TestClient_PostForm(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			nethttp.Error(w, "method", nethttp.StatusMethodNotAllowed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "fileName=export.zip" {
			nethttp.Error(w, "bad form", nethttp.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"isSucceeded":true}`))
	}))
	defer srv.Close()

	c := NewClient()
	form := url.Values{"fileName": {"export.zip"}}
	data, contentType, err := c.PostForm(context.Background(), srv.URL, form)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contentType != "application/json" {
		t.Errorf("content type = %q, want application/json", contentType)
	}
	if string(data) != `{"isSucceeded":true}` {
		t.Errorf("body = %q", data)
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantTransient bool
		wantNotFound  bool
		wantDenied    bool
	}{
		{name: "nil", err: nil},
		{name: "500", err: &StatusError{StatusCode: 500}, wantTransient: true},
		{name: "503", err: &StatusError{StatusCode: 503}, wantTransient: true},
		{name: "404", err: &StatusError{StatusCode: 404}, wantNotFound: true},
		{name: "410", err: &StatusError{StatusCode: 410}, wantNotFound: true},
		{name: "401", err: &StatusError{StatusCode: 401}, wantDenied: true},
		{name: "403", err: &StatusError{StatusCode: 403}, wantDenied: true},
		{name: "conn reset", err: syscall.ECONNRESET, wantTransient: true},
		{name: "unexpected EOF", err: io.ErrUnexpectedEOF, wantTransient: true},
		{name: "context canceled", err: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.wantTransient {
				t.Errorf("IsTransient = %v, want %v", got, tt.wantTransient)
			}
			if got := IsNotFound(tt.err); got != tt.wantNotFound {
				t.Errorf("IsNotFound = %v, want %v", got, tt.wantNotFound)
			}
			if got := IsDenied(tt.err); got != tt.wantDenied {
				t.Errorf("IsDenied = %v, want %v", got, tt.wantDenied)
			}
		})
	}
}
