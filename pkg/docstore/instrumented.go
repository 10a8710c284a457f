package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/metrics"
)

// instrumented wraps a Store with a metrics.DocStoreMetrics, the same
// adapter-over-an-existing-implementation shape the teacher uses to bolt
// observability onto a cache backend without touching the backend itself.
type instrumented struct {
	Store
	backend string
	m       metrics.DocStoreMetrics
}

// WithMetrics wraps inner so every Insert, Get and MaybeGet reports to m,
// tagged with backend (e.g. "memory", "fs", "s3"); Delete passes through
// unrecorded. Passing a nil m is the same as
// not wrapping at all - every metrics.DocStoreMetrics method is a no-op on
// a nil receiver, but skipping the wrapper entirely avoids the timer calls.
func WithMetrics(backend string, inner Store, m metrics.DocStoreMetrics) Store {
	if m == nil {
		return inner
	}
	return &instrumented{Store: inner, backend: backend, m: m}
}

func (s *instrumented) Insert(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest, data []byte) error {
	start := time.Now()
	err := s.Store.Insert(ctx, id, hmac, data)
	if err == nil {
		s.m.ObserveWrite(s.backend, int64(len(data)), time.Since(start))
	}
	return err
}

func (s *instrumented) Get(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest) ([]byte, error) {
	start := time.Now()
	data, err := s.Store.Get(ctx, id, hmac)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.m.RecordMiss(s.backend)
		}
		return nil, err
	}
	s.m.ObserveRead(s.backend, int64(len(data)), time.Since(start))
	return data, nil
}

func (s *instrumented) MaybeGet(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest) ([]byte, bool, error) {
	start := time.Now()
	data, ok, err := s.Store.MaybeGet(ctx, id, hmac)
	if err != nil || !ok {
		return data, ok, err
	}
	s.m.ObserveRead(s.backend, int64(len(data)), time.Since(start))
	return data, ok, nil
}
