package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tamirms/nfthash/set"
)

// loadSets builds a registry from a directory of set files and from TOML
// set definitions, which are loaded as in-memory sets.
func loadSets(ctx context.Context, log *zap.Logger, dir string, defs []string) (*set.Registry, error) {
	reg := set.NewRegistry(log)
	if dir != "" {
		if _, err := reg.LoadDir(ctx, dir); err != nil {
			return nil, errors.Join(err, reg.Close())
		}
	}
	for _, path := range defs {
		m, err := mapFromDef(path)
		if err != nil {
			return nil, errors.Join(err, reg.Close())
		}
		if err := reg.Add(m); err != nil {
			return nil, errors.Join(fmt.Errorf("%s: %w", path, err), reg.Close())
		}
	}
	return reg, nil
}

func mapFromDef(path string) (*set.Map, error) {
	snap, err := loadSetDef(path)
	if err != nil {
		return nil, err
	}
	m, err := set.NewMap(snap.Name, snap.ID, snap.KeyLen, snap.ValueLen)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, e := range snap.Entries {
		if err := m.Insert(e.Key, e.Value); err != nil {
			m.Abort()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	m.Commit()
	return m, nil
}
