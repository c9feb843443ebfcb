package cache

import (
	"github.com/dgraph-io/ristretto"
	ristrettoStore "github.com/eko/gocache/store/ristretto/v4"
)

// S is the process-local cache store shared by the services layer.
var S *ristrettoStore.RistrettoStore

func NewStore() error {
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return err
	}
	S = ristrettoStore.NewRistretto(client)
	return nil
}
