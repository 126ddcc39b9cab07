package api

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransport_MapsTimeouts(t *testing.T) {
	tr := NewTransport(Timeouts{
		Connect: 3 * time.Second,
		Read:    7 * time.Second,
		Write:   5 * time.Second,
		Pool:    45 * time.Second,
	})

	assert.Equal(t, 3*time.Second, tr.TLSHandshakeTimeout)
	assert.Equal(t, 7*time.Second, tr.ResponseHeaderTimeout)
	assert.Equal(t, 45*time.Second, tr.IdleConnTimeout)
}

func TestNewTransport_ZeroKeepsDefaults(t *testing.T) {
	def := http.DefaultTransport.(*http.Transport)
	tr := NewTransport(Timeouts{})

	assert.Equal(t, def.TLSHandshakeTimeout, tr.TLSHandshakeTimeout)
	assert.Equal(t, def.IdleConnTimeout, tr.IdleConnTimeout)
	assert.Zero(t, tr.ResponseHeaderTimeout)
}

func TestNewTransport_WriteTimeoutWrapsConn(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		if c, err := ln.Accept(); err == nil {
			c.Close()
		}
	}()

	conn, err := NewTransport(Timeouts{Write: time.Second}).DialContext(context.Background(), "tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	wc, ok := conn.(*writeDeadlineConn)
	require.True(t, ok, "write timeout should wrap the dialed conn")
	assert.Equal(t, time.Second, wc.timeout)

	plain, err := NewTransport(Timeouts{}).DialContext(context.Background(), "tcp", ln.Addr().String())
	require.NoError(t, err)
	defer plain.Close()

	_, wrapped := plain.(*writeDeadlineConn)
	assert.False(t, wrapped)
}

func TestWriteDeadlineConn_TimesOutBlockedWrite(t *testing.T) {
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})

	// Nobody reads from server, so the write blocks until the deadline.
	conn := &writeDeadlineConn{Conn: client, timeout: 20 * time.Millisecond}

	_, err := conn.Write([]byte("chunk"))
	require.ErrorIs(t, err, os.ErrDeadlineExceeded)
}

func TestNewTransport_ReadTimeoutBoundsHeaders(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := NewHTTPClient(NewTransport(Timeouts{Read: 50 * time.Millisecond}), Timeouts{Read: 50 * time.Millisecond})

	_, err := c.Get(srv.URL)
	require.Error(t, err)
	assert.True(t, isTimeout(err))
}

func TestNewHTTPClient_Total(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewHTTPClient(nil, Timeouts{}).Timeout)
	assert.Equal(t, 5*time.Second, NewHTTPClient(nil, Timeouts{Total: 5 * time.Second}).Timeout)
	assert.Zero(t, NewHTTPClient(nil, Timeouts{Read: time.Second}).Timeout, "explicit timeouts replace the default total")
}
