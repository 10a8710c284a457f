package config

import (
	"context"
	"fmt"

	"github.com/lockbookapp/lockbook-core/pkg/docstore"
	"github.com/lockbookapp/lockbook-core/pkg/docstore/fsstore"
	"github.com/lockbookapp/lockbook-core/pkg/docstore/memstore"
	"github.com/lockbookapp/lockbook-core/pkg/docstore/s3store"
	"github.com/lockbookapp/lockbook-core/pkg/server/store"
	"github.com/lockbookapp/lockbook-core/pkg/server/store/badger"
	"github.com/lockbookapp/lockbook-core/pkg/server/store/memory"
)

// CreateServerStore constructs the pkg/server/store.Store backend cfg
// selects, following the same type-string-switch factory shape the
// teacher uses to pick a metadata store implementation.
func CreateServerStore(cfg StoreConfig) (store.Store, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.New(), nil
	case "badger":
		return badger.Open(badger.Config{
			Path:       cfg.Badger.Path,
			InMemory:   cfg.Badger.InMemory,
			SyncWrites: cfg.Badger.SyncWrites,
		})
	default:
		return nil, fmt.Errorf("unknown server store type: %q", cfg.Type)
	}
}

// CreateDocStore constructs the pkg/docstore.Store backend cfg selects.
func CreateDocStore(ctx context.Context, cfg DocStoreConfig) (docstore.Store, error) {
	switch cfg.Type {
	case "memory", "":
		return memstore.New(), nil
	case "fs":
		if cfg.FS.Dir == "" {
			return nil, fmt.Errorf("fs docstore requires docstore.fs.dir to be set")
		}
		return fsstore.New(cfg.FS.Dir)
	case "s3":
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 docstore requires docstore.s3.bucket to be set")
		}
		return s3store.NewFromConfig(ctx, s3store.Config{
			Bucket:         cfg.S3.Bucket,
			Region:         cfg.S3.Region,
			Endpoint:       cfg.S3.Endpoint,
			KeyPrefix:      cfg.S3.KeyPrefix,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown docstore type: %q", cfg.Type)
	}
}
