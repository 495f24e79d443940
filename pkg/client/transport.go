package client

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// TransportConfig defines limits of the HTTP transport.
type TransportConfig struct {
	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	MaxConnsPerHost       int
	// HTTP2 only, see HTTP2Transport
	PingTimeout time.Duration
}

// DefaultTransportConfig returns reasonable limits.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		DialTimeout:           3 * time.Second,
		KeepAlive:             10 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
		MaxConnsPerHost:       32,
		PingTimeout:           3 * time.Second,
	}
}

// DefaultTransport creates a transport with default limits.
func DefaultTransport() http.RoundTripper {
	return NewTransport(DefaultTransportConfig())
}

// NewTransport creates a transport, HTTP2 is preferred, HTTP1 is used as a fallback.
func NewTransport(cfg TransportConfig) *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           cfg.dialer().DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
	}
}

// HTTP2Transport creates a transport which forces HTTP2 protocol.
func HTTP2Transport(cfg TransportConfig) *http2.Transport {
	dialer := cfg.dialer()
	return &http2.Transport{
		DialTLS: func(network, addr string, tlsCfg *tls.Config) (net.Conn, error) {
			return tls.DialWithDialer(dialer, network, addr, tlsCfg)
		},
		ReadIdleTimeout:  cfg.PingTimeout,
		PingTimeout:      cfg.PingTimeout,
		WriteByteTimeout: cfg.PingTimeout,
	}
}

func (cfg TransportConfig) dialer() *net.Dialer {
	return &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: cfg.KeepAlive}
}
