// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/irfndi/funnel-finance-go/internal/logging"
	"github.com/redis/go-redis/v9"
)

// NewTestRedis starts an in-process Redis server and returns a client bound
// to it. Both are closed when the test ends.
func NewTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return server, client
}

// DiscardLogger returns a debug-level logger that writes nowhere.
func DiscardLogger() *logging.StandardLogger {
	return logging.NewStandardLoggerWithWriter(io.Discard, "debug", "test")
}
