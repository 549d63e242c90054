package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg := FromEnv()
	if cfg.Level != slog.LevelDebug {
		t.Errorf("level = %v, want debug", cfg.Level)
	}
	if cfg.Format != FormatJSON {
		t.Errorf("format = %q, want json", cfg.Format)
	}
}

func TestLoggerComponentField(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Handler: slog.NewTextHandler(&buf, nil), Component: "feed"})

	logger.Info("connected")
	if out := buf.String(); !strings.Contains(out, "component=feed") {
		t.Fatalf("log line missing component: %q", out)
	}

	buf.Reset()
	logger.WithComponent("mirror").Info("appended")
	if out := buf.String(); !strings.Contains(out, "component=mirror") {
		t.Fatalf("log line missing switched component: %q", out)
	}
}

func TestRequestIDMiddlewareBindsContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Handler: slog.NewTextHandler(&buf, nil), Component: "http"})

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "handled")
	})

	handler := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string {
		return "req_abc123"
	})(inner))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/invoices", nil))

	out := buf.String()
	if !strings.Contains(out, "request_id=req_abc123") {
		t.Fatalf("log line missing request id: %q", out)
	}
	if !strings.Contains(out, "component=http") {
		t.Fatalf("log line missing component: %q", out)
	}
}

func TestFromContextFallback(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil || logger.Logger == nil {
		t.Fatal("expected a usable fallback logger")
	}
}
