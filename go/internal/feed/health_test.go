package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type connStatus bool

func (c connStatus) IsConnected() bool { return bool(c) }

func TestRelayHealthUnhealthyUntilRunning(t *testing.T) {
	relay := NewRelay(NewBroadcaster(), &flakyPublisher{}, DefaultRelayConfig(), nil)
	checker := NewRelayHealthChecker(relay, pingerFunc(func(context.Context) error { return nil }), connStatus(true))

	status := checker.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Contains(t, status.Errors, "relay not active")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = relay.Start(ctx) }()
	require.Eventually(t, relay.Running, time.Second, 5*time.Millisecond)

	status = checker.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.True(t, status.DatabaseConnected)
	assert.True(t, status.NATSConnected)
}

func TestRelayHealthHandlerReportsFailures(t *testing.T) {
	relay := NewRelay(NewBroadcaster(), &flakyPublisher{}, DefaultRelayConfig(), nil)
	checker := NewRelayHealthChecker(relay, pingerFunc(func(context.Context) error {
		return errors.New("connection refused")
	}), connStatus(false))

	rec := httptest.NewRecorder()
	checker.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.False(t, status.DatabaseConnected)
	assert.False(t, status.NATSConnected)
	assert.Len(t, status.Errors, 3)
}
