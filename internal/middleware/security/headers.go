package security

import "net/http"

// HeadersConfig controls which security headers are applied
type HeadersConfig struct {
	ContentTypeOptions    string
	FrameOptions          string
	ContentSecurityPolicy string
	ReferrerPolicy        string
}

// DefaultHeadersConfig returns headers suitable for a JSON API
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		ContentTypeOptions:    "nosniff",
		FrameOptions:          "DENY",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}
}

// HeadersMiddleware applies security headers to every response
type HeadersMiddleware struct {
	config HeadersConfig
}

// NewHeadersMiddleware creates a headers middleware with the given config
func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	return &HeadersMiddleware{config: config}
}

// Middleware returns the wrapping http.Handler
func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.applyHeaders(w)
		next.ServeHTTP(w, r)
	})
}

func (h *HeadersMiddleware) applyHeaders(w http.ResponseWriter) {
	if h.config.ContentTypeOptions != "" {
		w.Header().Set("X-Content-Type-Options", h.config.ContentTypeOptions)
	}
	if h.config.FrameOptions != "" {
		w.Header().Set("X-Frame-Options", h.config.FrameOptions)
	}
	if h.config.ContentSecurityPolicy != "" {
		w.Header().Set("Content-Security-Policy", h.config.ContentSecurityPolicy)
	}
	if h.config.ReferrerPolicy != "" {
		w.Header().Set("Referrer-Policy", h.config.ReferrerPolicy)
	}
}
