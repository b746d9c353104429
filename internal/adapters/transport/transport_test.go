package transport

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewHTTPClient_Defaults(t *testing.T) {
	c := NewHTTPClient(Options{})
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok, "no logging transport unless asked")
	assert.Equal(t, DefaultConnectTimeout, tr.TLSHandshakeTimeout)
}

func TestNewHTTPClient_ReadTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()
	defer close(release)

	c := NewHTTPClient(Options{ReadTimeout: 50 * time.Millisecond})
	_, err := c.Get(server.URL)
	require.Error(t, err)

	assert.True(t, errors.Is(err, os.ErrDeadlineExceeded), "got %v", err)
}

func TestNewHTTPClient_SlowButSteadyBodySucceeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 4; i++ {
			w.Write([]byte("chunk;"))
			flusher.Flush()
			time.Sleep(30 * time.Millisecond)
		}
	}))
	defer server.Close()

	// total time exceeds the read timeout, each gap does not
	c := NewHTTPClient(Options{ReadTimeout: 100 * time.Millisecond})
	resp, err := c.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "chunk;chunk;chunk;chunk;", string(body))
}

func TestNewHTTPClient_LogsBodies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"theme":"Sabbath"}`))
	}))
	defer server.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	c := NewHTTPClient(Options{LogBodies: true, Logger: zap.New(core)})

	resp, err := c.Post(server.URL+"/askGemini", "application/json", strings.NewReader(`{"question":"why?"}`))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, `{"theme":"Sabbath"}`, string(body), "body still readable after dump")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].ContextMap()["dump"], `{"question":"why?"}`)
	assert.Contains(t, entries[1].ContextMap()["dump"], `{"theme":"Sabbath"}`)
}

func TestNewHTTPClient_LoggingSkippedAboveDebug(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	core, logs := observer.New(zapcore.InfoLevel)
	c := NewHTTPClient(Options{LogBodies: true, Logger: zap.New(core)})

	resp, err := c.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Zero(t, logs.Len())
}

func TestNewHTTPClient_LogsTransportFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	c := NewHTTPClient(Options{LogBodies: true, Logger: zap.New(core)})

	_, err = c.Get("http://" + addr)
	require.Error(t, err)
	assert.Equal(t, 1, logs.FilterMessage("<-- failed").Len())
}
