package storage

import (
	"context"
	"fmt"

	"debugtrail/internal/config"
)

// Open builds the Store described by settings.
func Open(ctx context.Context, settings config.Storage) (Store, error) {
	codec, err := ParseCodec(settings.Codec)
	if err != nil {
		return nil, err
	}
	switch settings.Backend {
	case config.BackendSQLite:
		store, err := NewSQLiteStore(ctx, settings.Path, codec)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendFile, "":
		store, err := NewFileStore(settings.Path, codec)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unsupported storage backend %q", settings.Backend)
}
