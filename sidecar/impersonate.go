package sidecar

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// chromeSpec is a Chrome-like TLS ClientHello (cipher/extension/ALPN/GREASE
// order) computed once and reused for every impersonated connection.
var chromeSpec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		// Fall back to zero-value spec; ApplyPreset will error loudly at
		// dial time rather than silently degrading the fingerprint.
		return
	}
	chromeSpec = spec
}

// ImpersonatingClient is the outbound HTTP client configured with a target
// browser version's TLS profile and HTTP/2 settings. In the
// transparent-tunnel mode the proxy itself never calls this client — it is
// reserved for a future terminate-and-re-encrypt operation.
type ImpersonatingClient struct {
	HTTP *http.Client
}

// NewImpersonatingClient builds the impersonating client once.
func NewImpersonatingClient() *ImpersonatingClient {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeSpec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("sidecar: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: true,
	}
	// HTTP/2 settings: the header list is capped at 4096 bytes and idle
	// connections are health-checked after 30s. The initial window, max
	// frame and HPACK header-table sizes are not set here and stay at the
	// http2 library defaults.
	if h2, err := http2.ConfigureTransports(transport); err == nil && h2 != nil {
		h2.MaxHeaderListSize = 4096
		h2.ReadIdleTimeout = 30 * time.Second
	}

	return &ImpersonatingClient{
		HTTP: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}
