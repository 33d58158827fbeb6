// Package mq is the broker-facing side of the card event stream.
// The API server only ever produces; consumers (analytics, cache
// invalidation) live in other services, so the backend contract is
// publish-only.
package mq

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// Backend defines the broker-agnostic publish operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// MQ wraps a backend with a stable API.
type MQ struct {
	backend Backend
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// Publish sends a message to the named channel and returns its id.
func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, channel, data, attrs)
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}

func newMessageID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
