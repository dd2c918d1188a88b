package util

import (
	"net/http"
	"net/url"
	"testing"
	"time"
)

func mustRequest(t *testing.T, raw string) *http.Request {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Request{URL: u}
}

func TestNewProxyFunc(t *testing.T) {
	fn := NewProxyFunc("http://proxy:3128", "http://secure-proxy:3129", "localhost,.internal")

	tests := []struct {
		url  string
		want string
	}{
		{"https://api.tavily.com/search", "http://secure-proxy:3129"},
		{"http://api.example.com", "http://proxy:3128"},
		{"http://localhost:11434/api/chat", ""},
		{"https://search.corp.internal/q", ""},
	}

	for _, tt := range tests {
		got, err := fn(mustRequest(t, tt.url))
		if err != nil {
			t.Fatalf("%s: %v", tt.url, err)
		}
		if tt.want == "" {
			if got != nil {
				t.Errorf("%s: expected direct, got %s", tt.url, got)
			}
			continue
		}
		if got == nil || got.String() != tt.want {
			t.Errorf("%s: expected %s, got %v", tt.url, tt.want, got)
		}
	}
}

func TestNewHTTPClient(t *testing.T) {
	c := NewHTTPClient(5*time.Second, "", "")
	if c.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", c.Timeout)
	}
	if c.Transport == nil {
		t.Error("expected a transport")
	}
}
