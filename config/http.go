package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT"    envDefault:"15s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.Addr = strings.TrimSpace(h.Addr)
	h.CookieDomain = strings.TrimSpace(h.CookieDomain)
	if h.Addr == "" {
		h.Addr = ":8080"
	}
	if h.ReadHeaderTimeout <= 0 {
		h.ReadHeaderTimeout = 10 * time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 15 * time.Second
	}
}

// Validate checks that HTTP_ADDR is a host:port listen address.
func (h *HTTPConfig) Validate() error {
	if _, _, err := net.SplitHostPort(h.Addr); err != nil {
		return fmt.Errorf("HTTP_ADDR %q: %w", h.Addr, err)
	}
	return nil
}
