package main

import (
	"context"

	"github.com/kasuganosora/historystore/pkg/archive"
	"github.com/kasuganosora/historystore/pkg/config"
	"github.com/kasuganosora/historystore/pkg/store"
)

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.StoreDir == "" {
		return store.NewMemoryStore(), nil
	}
	return store.OpenBadgerStore(cfg.StoreDir)
}

// openExisting opens an archive that must already have at least one commit.
// A bare in-memory store (no --store configured) never has prior state
// across process invocations, so this is mainly useful with --store set to a
// Badger directory a prior `create` populated.
func openExisting(ctx context.Context, cfg *config.Config) (*archive.Archive, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if _, ok, err := st.LoadMetadata(); err != nil {
		return nil, err
	} else if !ok {
		return nil, usagef("no archive found at %q; run `historystore create` first", cfg.StoreDir)
	}
	return archive.New(ctx, archive.CreateOptions{Store: st})
}
