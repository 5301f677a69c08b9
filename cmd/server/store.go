package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scrounge.ai/internal/persistence/indexdb"
	"scrounge.ai/internal/persistence/snapshot"
	"scrounge.ai/internal/sim/economy"
)

type runtimeStore struct {
	economy.Store
	// index is non-nil for the sqlite backend; it also indexes events.
	index *indexdb.SQLiteIndex
}

func (r runtimeStore) Close() error {
	if r.index != nil {
		return r.index.Close()
	}
	return nil
}

// openStore picks the economy backend. SCROUNGE_STORE overrides the flag.
func openStore(dataDir, backend string) (runtimeStore, error) {
	if env := strings.ToLower(strings.TrimSpace(os.Getenv("SCROUNGE_STORE"))); env != "" {
		backend = env
	}
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "sqlite":
		idx, err := indexdb.OpenSQLite(filepath.Join(dataDir, "index", "economy.sqlite"))
		if err != nil {
			return runtimeStore{}, err
		}
		return runtimeStore{Store: idx, index: idx}, nil
	case "snapshot", "file":
		return runtimeStore{Store: snapshot.NewFileStore(filepath.Join(dataDir, "economy.snap.zst"))}, nil
	default:
		return runtimeStore{}, fmt.Errorf("unsupported store backend: %s", backend)
	}
}
