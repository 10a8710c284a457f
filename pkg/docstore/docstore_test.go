package docstore_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/docstore"
	"github.com/lockbookapp/lockbook-core/pkg/docstore/fsstore"
	"github.com/lockbookapp/lockbook-core/pkg/docstore/memstore"
)

func hmacOf(t *testing.T, data []byte) crypto.HMACDigest {
	t.Helper()
	var key crypto.AESKey
	return crypto.HMAC(key, data)
}

func testStores(t *testing.T) map[string]docstore.Store {
	t.Helper()
	fs, err := fsstore.New(filepath.Join(t.TempDir(), "docs"))
	if err != nil {
		t.Fatalf("fsstore.New() error = %v", err)
	}
	return map[string]docstore.Store{
		"memstore": memstore.New(),
		"fsstore":  fs,
	}
}

func TestInsertGetRoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uuid.New()
			data := []byte("encrypted document body")
			hmac := hmacOf(t, data)

			if err := store.Insert(ctx, id, hmac, data); err != nil {
				t.Fatalf("Insert() error = %v", err)
			}

			got, err := store.Get(ctx, id, hmac)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if string(got) != string(data) {
				t.Errorf("Get() = %q, want %q", got, data)
			}
		})
	}
}

func TestInsertIsIdempotent(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uuid.New()
			data := []byte("same bytes twice")
			hmac := hmacOf(t, data)

			if err := store.Insert(ctx, id, hmac, data); err != nil {
				t.Fatalf("first Insert() error = %v", err)
			}
			if err := store.Insert(ctx, id, hmac, data); err != nil {
				t.Fatalf("second Insert() error = %v", err)
			}

			got, err := store.Get(ctx, id, hmac)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if string(got) != string(data) {
				t.Errorf("Get() = %q, want %q", got, data)
			}
		})
	}
}

func TestMaybeGetMissingReturnsFalse(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, ok, err := store.MaybeGet(ctx, uuid.New(), crypto.HMACDigest{})
			if err != nil {
				t.Fatalf("MaybeGet() error = %v", err)
			}
			if ok {
				t.Error("MaybeGet() ok = true for absent document")
			}
		})
	}
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Get(ctx, uuid.New(), crypto.HMACDigest{}); err != docstore.ErrNotFound {
				t.Errorf("Get() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestDeleteThenMaybeGetMisses(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uuid.New()
			data := []byte("to be deleted")
			hmac := hmacOf(t, data)

			if err := store.Insert(ctx, id, hmac, data); err != nil {
				t.Fatalf("Insert() error = %v", err)
			}
			if err := store.Delete(ctx, id, hmac); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, ok, err := store.MaybeGet(ctx, id, hmac); err != nil || ok {
				t.Errorf("MaybeGet() after delete = (_, %v, %v), want (_, false, nil)", ok, err)
			}
		})
	}
}

func TestConcurrentDistinctKeysDoNotBlock(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		data := []byte{byte(i)}
		hmac := hmacOf(t, data)
		id := uuid.New()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Insert(ctx, id, hmac, data); err != nil {
				t.Errorf("Insert() error = %v", err)
			}
			if _, err := store.Get(ctx, id, hmac); err != nil {
				t.Errorf("Get() error = %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestConcurrentSameKeyInsertsConverge(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	id := uuid.New()
	data := []byte("converged")
	hmac := hmacOf(t, data)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Insert(ctx, id, hmac, data); err != nil {
				t.Errorf("Insert() error = %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, id, hmac)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Get() = %q, want %q", got, data)
	}
}
