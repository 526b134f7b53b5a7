package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name string
		val  string
		want time.Duration
	}{
		{"unset", "", 7 * time.Second},
		{"integer seconds", "45", 45 * time.Second},
		{"duration string", "1m30s", 90 * time.Second},
		{"garbage", "soon", 7 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ROASTERY_TEST_DURATION", tt.val)
			if got := getEnvDuration("ROASTERY_TEST_DURATION", 7*time.Second); got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultConfig_EnvOverride(t *testing.T) {
	t.Setenv("ROASTERY_HTTP_TIMEOUT", "12")
	cfg := DefaultConfig()
	if cfg.Timeout != 12*time.Second {
		t.Errorf("Timeout = %v, want 12s", cfg.Timeout)
	}
}

func TestWithTimeout(t *testing.T) {
	cfg := WithTimeout(5 * time.Second)
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
	if cfg.ResponseHeaderTimeout != 5*time.Second {
		t.Errorf("ResponseHeaderTimeout = %v, want it capped at 5s", cfg.ResponseHeaderTimeout)
	}

	if got := WithTimeout(0).Timeout; got != DefaultConfig().Timeout {
		t.Errorf("WithTimeout(0).Timeout = %v, want default", got)
	}
}

func TestNewHTTPClient(t *testing.T) {
	cfg := WithTimeout(3 * time.Second)
	client := NewHTTPClient(&cfg)
	if client.Timeout != 3*time.Second {
		t.Errorf("client.Timeout = %v, want 3s", client.Timeout)
	}
	if _, ok := client.Transport.(*userAgentTransport); !ok {
		t.Fatalf("Transport = %T, want *userAgentTransport", client.Transport)
	}

	cfg.UserAgent = ""
	if _, ok := NewHTTPClient(&cfg).Transport.(*http.Transport); !ok {
		t.Error("expected a bare *http.Transport without a user agent")
	}
}

func TestUserAgent(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("User-Agent"))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.UserAgent = "roastery/1.2.3"
	client := NewHTTPClient(&cfg)

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("User-Agent", "custom")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()

	if len(seen) != 2 || seen[0] != "roastery/1.2.3" || seen[1] != "custom" {
		t.Errorf("User-Agent headers = %v", seen)
	}
}
