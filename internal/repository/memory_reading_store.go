package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"GridPulse/internal/domain/models"
	domrepo "GridPulse/internal/domain/repository"
)

// MemoryReadingStore implements ReadingStore in memory. It backs the
// "memory" backend and the test suite. Records are kept per customer in
// ascending timestamp order; each write appends under the lock so a
// reading and its derived output become visible together.
type MemoryReadingStore struct {
	mu       sync.RWMutex
	records  map[int64][]*models.MeterRecord
	payments map[int64][]*models.Payment
}

// NewMemoryReadingStore creates an empty in-memory store.
func NewMemoryReadingStore() *MemoryReadingStore {
	return &MemoryReadingStore{
		records:  make(map[int64][]*models.MeterRecord),
		payments: make(map[int64][]*models.Payment),
	}
}

func (s *MemoryReadingStore) Init(ctx context.Context) error { return nil }

func (s *MemoryReadingStore) Record(ctx context.Context, reading *models.Reading, derived *models.DerivedOutput, source string) error {
	rec := &models.MeterRecord{Reading: *reading, Derived: *derived, Source: source}
	rec.Reading.Timestamp = rec.Reading.Timestamp.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(rec)
	return nil
}

func (s *MemoryReadingStore) RecordBatch(ctx context.Context, recs []*models.MeterRecord, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		cp := *rec
		cp.Reading.Timestamp = cp.Reading.Timestamp.UTC()
		cp.Source = source
		s.insertLocked(&cp)
	}
	return nil
}

// insertLocked keeps the per-customer slice sorted by timestamp. Appends
// are the common case; out-of-order arrivals trigger a sort insert.
func (s *MemoryReadingStore) insertLocked(rec *models.MeterRecord) {
	id := rec.Reading.CustomerID
	rows := s.records[id]
	if n := len(rows); n == 0 || !rows[n-1].Reading.Timestamp.After(rec.Reading.Timestamp) {
		s.records[id] = append(rows, rec)
		return
	}
	i := sort.Search(len(rows), func(i int) bool {
		return rows[i].Reading.Timestamp.After(rec.Reading.Timestamp)
	})
	rows = append(rows, nil)
	copy(rows[i+1:], rows[i:])
	rows[i] = rec
	s.records[id] = rows
}

func (s *MemoryReadingStore) Latest(ctx context.Context, customerID int64) (*models.MeterRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.records[customerID]
	if len(rows) == 0 {
		return nil, nil
	}
	cp := *rows[len(rows)-1]
	return &cp, nil
}

func (s *MemoryReadingStore) Scan(ctx context.Context, customerID int64, from, to time.Time) (domrepo.ReadingIterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.records[customerID]
	snapshot := make([]*models.MeterRecord, 0, len(rows))
	for _, rec := range rows {
		ts := rec.Reading.Timestamp
		if !from.IsZero() && ts.Before(from) {
			continue
		}
		if !to.IsZero() && !ts.Before(to) {
			continue
		}
		snapshot = append(snapshot, rec)
	}
	return &memIterator{ctx: ctx, rows: snapshot, idx: -1}, nil
}

func (s *MemoryReadingStore) RecordPayment(ctx context.Context, p *models.Payment) error {
	cp := *p
	cp.Timestamp = cp.Timestamp.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	id := cp.CustomerID
	s.payments[id] = append(s.payments[id], &cp)
	sort.SliceStable(s.payments[id], func(i, j int) bool {
		return s.payments[id][i].Timestamp.Before(s.payments[id][j].Timestamp)
	})
	return nil
}

func (s *MemoryReadingStore) PaymentsSince(ctx context.Context, customerID int64, since time.Time) ([]*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Payment
	for _, p := range s.payments[customerID] {
		if p.Timestamp.Before(since) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryReadingStore) Health(ctx context.Context) error { return nil }

func (s *MemoryReadingStore) Close() error { return nil }

// memIterator walks a snapshot taken at Scan time. Later writes never
// surface through an open iterator.
type memIterator struct {
	ctx  context.Context
	rows []*models.MeterRecord
	idx  int
	err  error
}

func (it *memIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.err = err
		return false
	}
	if it.idx+1 >= len(it.rows) {
		return false
	}
	it.idx++
	return true
}

func (it *memIterator) Record() *models.MeterRecord {
	if it.idx < 0 || it.idx >= len(it.rows) {
		return nil
	}
	return it.rows[it.idx]
}

func (it *memIterator) Err() error { return it.err }

func (it *memIterator) Close() error { return nil }
