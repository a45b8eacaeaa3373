package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

const valkeyKeyPrefix = "web3drender:"

// ValkeyConfig captures the connection parameters for a Valkey/Redis server.
type ValkeyConfig struct {
	Address  string
	Username string
	Password string
	DB       int
}

// ValkeyStore implements Store using INCR/PEXPIRE against Valkey.
type ValkeyStore struct {
	client valkey.Client
}

// NewValkeyStore connects to the configured server.
func NewValkeyStore(cfg ValkeyConfig) (*ValkeyStore, error) {
	addr := strings.TrimSpace(cfg.Address)
	if addr == "" {
		return nil, errors.New("valkey: address is required")
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
		Username:    cfg.Username,
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &ValkeyStore{client: client}, nil
}

func namespaced(key string) string {
	return valkeyKeyPrefix + key
}

// IncrementWithTTL increments the counter and arms its expiry on the first hit.
func (s *ValkeyStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	k := namespaced(key)

	count, err := s.client.Do(ctx, s.client.B().Incr().Key(k).Build()).AsInt64()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := s.client.Do(ctx, s.client.B().Pexpire().Key(k).Milliseconds(window.Milliseconds()).Build()).Error(); err != nil {
			return 0, 0, err
		}
		return count, window, nil
	}

	ttl, err := s.client.Do(ctx, s.client.B().Pttl().Key(k).Build()).AsInt64()
	if err != nil {
		return 0, 0, err
	}
	if ttl < 0 {
		// counter lost its expiry; re-arm so the key cannot live forever
		if err := s.client.Do(ctx, s.client.B().Pexpire().Key(k).Milliseconds(window.Milliseconds()).Build()).Error(); err != nil {
			return 0, 0, err
		}
		ttl = window.Milliseconds()
	}
	return count, time.Duration(ttl) * time.Millisecond, nil
}

// Delete removes keys from the server.
func (s *ValkeyStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = namespaced(key)
	}
	return s.client.Do(ctx, s.client.B().Del().Key(names...).Build()).Error()
}

// Ping checks that the server answers.
func (s *ValkeyStore) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (s *ValkeyStore) Close() {
	if s != nil && s.client != nil {
		s.client.Close()
	}
}
