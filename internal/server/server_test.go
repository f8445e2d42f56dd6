package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pharmacart/internal/config"
)

func TestNew_AppliesConfig(t *testing.T) {
	cfg := config.ServerConfig{
		Port:            9091,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    4 * time.Second,
		ShutdownTimeout: time.Second,
	}

	srv := New(cfg, http.NotFoundHandler(), zap.NewNop())

	assert.Equal(t, ":9091", srv.Addr())
	assert.Equal(t, 3*time.Second, srv.httpServer.ReadTimeout)
	assert.Equal(t, 4*time.Second, srv.httpServer.WriteTimeout)
	assert.Equal(t, 6*time.Second, srv.httpServer.IdleTimeout)
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	srv := New(config.ServerConfig{Port: 0, ReadTimeout: time.Second, WriteTimeout: time.Second, ShutdownTimeout: time.Second}, http.NotFoundHandler(), zap.NewNop())

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, srv.Start())
}
