package api

import (
	"context"
	"net"
	"net/http"
	"time"
)

// DefaultTimeout bounds a whole request when no explicit timeouts are given.
const DefaultTimeout = 30 * time.Second

const keepAlive = 30 * time.Second

// Timeouts configures per-request limits. Total bounds the whole exchange.
// Connect bounds dialing and the TLS handshake, Read bounds the wait for
// response headers, Write bounds each write of the request to the socket and
// Pool bounds how long an idle pooled connection is kept.
type Timeouts struct {
	Total   time.Duration
	Connect time.Duration
	Read    time.Duration
	Write   time.Duration
	Pool    time.Duration
}

// NewTransport returns a pooled transport honoring t.
func NewTransport(t Timeouts) *http.Transport {
	tr := http.DefaultTransport.(*http.Transport).Clone()

	dialer := &net.Dialer{Timeout: t.Connect, KeepAlive: keepAlive}
	tr.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil || t.Write <= 0 {
			return conn, err
		}

		return &writeDeadlineConn{Conn: conn, timeout: t.Write}, nil
	}

	if t.Connect > 0 {
		tr.TLSHandshakeTimeout = t.Connect
	}

	if t.Read > 0 {
		tr.ResponseHeaderTimeout = t.Read
	}

	if t.Pool > 0 {
		tr.IdleConnTimeout = t.Pool
	}

	return tr
}

// NewHTTPClient wraps rt in an http.Client with the total timeout applied.
// A zero Total with no other timeouts set falls back to DefaultTimeout.
func NewHTTPClient(rt http.RoundTripper, t Timeouts) *http.Client {
	total := t.Total
	if total == 0 && t.Connect == 0 && t.Read == 0 && t.Write == 0 {
		total = DefaultTimeout
	}

	return &http.Client{Transport: rt, Timeout: total}
}

// writeDeadlineConn arms a write deadline before every Write.
type writeDeadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *writeDeadlineConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}

	return c.Conn.Write(p)
}
