package checks

import (
	"context"

	"github.com/charlesng35/web3drender/internal/monitoring"
)

// Pinger is satisfied by cache.ValkeyStore.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Valkey probes the rate limit counter server.
func Valkey(client Pinger) monitoring.Check {
	return monitoring.NewCheck("valkey", func(ctx context.Context) error {
		return client.Ping(ctx)
	})
}
