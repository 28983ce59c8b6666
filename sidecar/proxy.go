// Package sidecar implements the network laundering proxy: a local
// CONNECT-tunneling listener that Chromium is forced to route through, and
// the impersonating outbound client reserved for terminate-and-re-encrypt
// operation.
package sidecar

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Proxy is the local CONNECT-tunneling sidecar.
type Proxy struct {
	addr     string
	listener net.Listener

	Impersonate *ImpersonatingClient
}

// New builds a Proxy bound to the given port. It does not start listening
// until Serve is called.
func New(port int) *Proxy {
	return &Proxy{
		addr:        fmt.Sprintf("127.0.0.1:%d", port),
		Impersonate: NewImpersonatingClient(),
	}
}

// Serve binds the listener and accepts connections until ctx is canceled.
// A bind failure is returned at once for the caller to treat as fatal;
// accept errors after a successful bind are logged and the loop continues,
// and Serve returns nil once ctx is canceled.
func (p *Proxy) Serve(ctx context.Context) error {
	l, err := net.Listen("tcp", p.addr)
	if err != nil {
		return fmt.Errorf("sidecar: bind %s: %w", p.addr, err)
	}
	p.listener = l
	slog.Info("sidecar proxy listening", "addr", p.addr)

	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			slog.Warn("sidecar: accept error", "error", err)
			continue
		}
		// Per-connection errors are logged and isolated — one broken tunnel
		// never kills the listener.
		go p.handleConn(conn)
	}
}

// Addr returns the bound listen address (host:port).
func (p *Proxy) Addr() string {
	if p.listener != nil {
		return p.listener.Addr().String()
	}
	return p.addr
}

func (p *Proxy) handleConn(conn net.Conn) {
	defer conn.Close()

	br := bufio.NewReader(conn)
	req, err := http.ReadRequest(br)
	if err != nil {
		slog.Debug("sidecar: failed to read request", "error", err)
		return
	}

	if req.Method != http.MethodConnect {
		// Policy: force the browser onto HTTPS-only paths so all traffic
		// enters the tunnel path.
		resp := "HTTP/1.1 403 Forbidden\r\nContent-Length: 0\r\n\r\n"
		_, _ = io.WriteString(conn, resp)
		return
	}

	target := req.URL.Host
	if target == "" {
		target = req.Host
	}
	upstream, err := net.DialTimeout("tcp", target, 10*time.Second)
	if err != nil {
		slog.Warn("sidecar: dial upstream failed", "target", target, "error", err)
		_, _ = io.WriteString(conn, "HTTP/1.1 502 Bad Gateway\r\nContent-Length: 0\r\n\r\n")
		return
	}
	defer upstream.Close()

	if _, err := io.WriteString(conn, "HTTP/1.1 200 Connection Established\r\n\r\n"); err != nil {
		return
	}

	tunnel(conn, upstream)
}

// tunnel transparently forwards bytes in both directions until either side
// closes. The current contract is byte forwarding — no MITM decryption.
func tunnel(client net.Conn, upstream net.Conn) {
	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(upstream, client)
		if c, ok := upstream.(interface{ CloseWrite() error }); ok {
			_ = c.CloseWrite()
		}
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(client, upstream)
		if c, ok := client.(interface{ CloseWrite() error }); ok {
			_ = c.CloseWrite()
		}
		done <- struct{}{}
	}()
	<-done
	<-done
}
