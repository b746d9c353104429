// Package transport builds the HTTP client used to reach the backend.
package transport

import (
	"context"
	"net"
	"net/http"
	"net/http/httputil"
	"time"

	"go.uber.org/zap"
)

// Default timeouts for backend traffic.
const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultReadTimeout    = 60 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
)

// Options configures NewHTTPClient. Zero timeouts fall back to the defaults.
type Options struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration // Per read on the connection
	WriteTimeout   time.Duration // Per write on the connection
	LogBodies      bool
	Logger         *zap.Logger
}

// NewHTTPClient creates the client shared by every backend call.
func NewHTTPClient(opts Options) *http.Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	dialer := &net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSHandshakeTimeout = opts.ConnectTimeout
	base.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		return &deadlineConn{Conn: conn, read: opts.ReadTimeout, write: opts.WriteTimeout}, nil
	}

	var rt http.RoundTripper = base
	if opts.LogBodies {
		rt = &loggingTransport{next: base, logger: opts.Logger}
	}
	return &http.Client{Transport: rt}
}

// deadlineConn arms a fresh deadline before every read and write, so a
// stalled peer fails after the timeout however long the exchange is.
type deadlineConn struct {
	net.Conn
	read  time.Duration
	write time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.read)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.write)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}

// loggingTransport dumps requests and responses, bodies included, at debug level.
type loggingTransport struct {
	next   http.RoundTripper
	logger *zap.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.logger.Core().Enabled(zap.DebugLevel) {
		return t.next.RoundTrip(req)
	}

	if dump, err := httputil.DumpRequestOut(req, true); err == nil {
		t.logger.Debug("--> request", zap.String("method", req.Method), zap.String("url", req.URL.String()), zap.ByteString("dump", dump))
	} else {
		t.logger.Debug("dumping request", zap.Error(err))
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.logger.Debug("<-- failed", zap.String("url", req.URL.String()), zap.Duration("took", time.Since(start)), zap.Error(err))
		return nil, err
	}

	if dump, derr := httputil.DumpResponse(resp, true); derr == nil {
		t.logger.Debug("<-- response", zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(start)), zap.ByteString("dump", dump))
	} else {
		t.logger.Debug("dumping response", zap.Error(derr))
	}
	return resp, nil
}
