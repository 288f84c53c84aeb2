package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/tableclean/internal/config"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "no trusted proxies ignores headers",
			remoteAddr: "203.0.113.7:5555",
			headers:    map[string]string{"X-Real-IP": "10.1.1.1"},
			want:       "203.0.113.7:5555",
		},
		{
			name:       "trusted proxy X-Real-IP",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.2:4000",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			want:       "198.51.100.9",
		},
		{
			name:       "trusted single address X-Forwarded-For",
			trusted:    []string{"127.0.0.1"},
			remoteAddr: "127.0.0.1:4000",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.9, 10.0.0.3"},
			want:       "198.51.100.9",
		},
		{
			name:       "untrusted proxy keeps remote",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "192.0.2.1:4000",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			want:       "192.0.2.1:4000",
		},
		{
			name:       "invalid header value keeps remote",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.0.0.2:4000",
			headers:    map[string]string{"X-Real-IP": "not-an-ip"},
			want:       "10.0.0.2:4000",
		},
		{
			name:       "invalid trusted entries are skipped",
			trusted:    []string{"bogus", " ", "10.0.0.0/8"},
			remoteAddr: "10.0.0.2:4000",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			want:       "198.51.100.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4000"
	if got := ClientIP(req); got != "192.0.2.1" {
		t.Errorf("ClientIP() = %q, want %q", got, "192.0.2.1")
	}
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	called := false
	h := APIKeyAuth(&config.SecurityConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("handler not called with auth disabled")
	}
}

func TestIsValidAPIKey(t *testing.T) {
	keys := []string{"alpha", "beta"}
	if !isValidAPIKey("beta", keys) {
		t.Error("beta should be valid")
	}
	if isValidAPIKey("gamma", keys) {
		t.Error("gamma should be invalid")
	}
	if isValidAPIKey("alpha", nil) {
		t.Error("no keys configured should reject everything")
	}
}

func TestLogger_CapturesStatus(t *testing.T) {
	var ww *responseWriter
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww = w.(*responseWriter)
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pot", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if ww.status != http.StatusTeapot || ww.bytes != len("short and stout") {
		t.Errorf("captured status=%d bytes=%d", ww.status, ww.bytes)
	}
}
