package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestNew_WritesServiceField(t *testing.T) {
	var buf bytes.Buffer
	log := New("evolentra", &buf, "info")

	log.WithUserID(42).Info("investment created")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "evolentra", entry["service"])
	assert.Equal(t, "investment created", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, float64(42), entry["user_id"])
	assert.Contains(t, entry, "timestamp")
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New("evolentra", &buf, "warn")

	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("shown")
	assert.NotZero(t, buf.Len())
}

func TestUnaryServerInterceptor_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	log := New("evolentra", &buf, "info")
	interceptor := UnaryServerInterceptor(log)
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, errors.New("store unavailable")
	})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "store unavailable")
	assert.Contains(t, buf.String(), "/grpc.health.v1.Health/Check")
}
