package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		realIP     string
		want       string
	}{
		{name: "remote addr with port", remoteAddr: "203.0.113.7:51234", want: "203.0.113.7"},
		{name: "ipv6 remote addr", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "forwarded for single", remoteAddr: "10.0.0.1:80", xff: "198.51.100.4", want: "198.51.100.4"},
		{name: "forwarded for chain takes first", remoteAddr: "10.0.0.1:80", xff: "198.51.100.4, 10.0.0.2", want: "198.51.100.4"},
		{name: "real ip fallback", remoteAddr: "10.0.0.1:80", realIP: "198.51.100.9", want: "198.51.100.9"},
		{name: "forwarded for wins over real ip", remoteAddr: "10.0.0.1:80", xff: "198.51.100.4", realIP: "198.51.100.9", want: "198.51.100.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(req))
		})
	}
}
