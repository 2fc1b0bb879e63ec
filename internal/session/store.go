package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"datasweeper/internal/dataset"
)

var ErrNotFound = errors.New("dataset not found")

// entry is one cached dataset. mu serializes work on the dataset itself so
// that the store lock is never held while a dataset is being processed.
type entry struct {
	mu        sync.Mutex
	ds        *dataset.Dataset
	createdAt time.Time
	expiresAt time.Time
	hits      int
}

// Store keeps uploaded datasets in memory. Entries expire after ttl without
// access; when full, the oldest entry is evicted.
type Store struct {
	entries   map[string]*entry
	mutex     sync.RWMutex
	ttl       time.Duration
	maxSize   int
	hitCount  int64
	missCount int64
	evictions int64
	now       func() time.Time
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewStore creates a store and starts its expiry sweep.
func NewStore(ttl time.Duration, maxSize int, sweepInterval time.Duration) *Store {
	s := &Store{
		entries:  make(map[string]*entry),
		ttl:      ttl,
		maxSize:  maxSize,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	if sweepInterval > 0 {
		go s.cleanup(sweepInterval)
	}

	return s
}

// Put stores ds under its ID.
func (s *Store) Put(ds *dataset.Dataset) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.maxSize <= 0 {
		return
	}

	if _, exists := s.entries[ds.ID]; !exists && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	now := s.now()
	s.entries[ds.ID] = &entry{
		ds:        ds,
		createdAt: now,
		expiresAt: now.Add(s.ttl),
	}
}

// lookup finds a live entry and extends its lifetime.
func (s *Store) lookup(id string) (*entry, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, exists := s.entries[id]
	now := s.now()
	if !exists || now.After(e.expiresAt) {
		if exists {
			delete(s.entries, id)
		}
		s.missCount++
		return nil, ErrNotFound
	}

	e.hits++
	e.expiresAt = now.Add(s.ttl)
	s.hitCount++
	return e, nil
}

// Get returns a copy of the dataset stored under id.
func (s *Store) Get(id string) (*dataset.Dataset, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ds.Clone(), nil
}

// Update runs fn on a copy of the dataset and stores the copy when fn
// succeeds. Updates of one dataset run one at a time.
func (s *Store) Update(id string, fn func(ds *dataset.Dataset) error) (*dataset.Dataset, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	work := e.ds.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	e.ds = work
	return work.Clone(), nil
}

// Delete removes the dataset stored under id.
func (s *Store) Delete(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.entries[id]; !exists {
		return ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// List returns copies of the live datasets, oldest upload first.
func (s *Store) List() []*dataset.Dataset {
	s.mutex.RLock()
	now := s.now()
	live := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		if !now.After(e.expiresAt) {
			live = append(live, e)
		}
	}
	s.mutex.RUnlock()

	out := make([]*dataset.Dataset, 0, len(live))
	for _, e := range live {
		e.mu.Lock()
		out = append(out, e.ds.Clone())
		e.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.Before(out[j].UploadedAt)
	})
	return out
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.entries)
}

// GetStats returns store statistics
func (s *Store) GetStats() map[string]interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	totalRequests := s.hitCount + s.missCount
	hitRatio := float64(0)
	if totalRequests > 0 {
		hitRatio = float64(s.hitCount) / float64(totalRequests)
	}

	return map[string]interface{}{
		"entries":     len(s.entries),
		"max_size":    s.maxSize,
		"hit_count":   s.hitCount,
		"miss_count":  s.missCount,
		"evictions":   s.evictions,
		"hit_ratio":   hitRatio,
		"ttl_seconds": s.ttl.Seconds(),
	}
}

func (s *Store) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, e := range s.entries {
		if oldestKey == "" || e.createdAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.createdAt
		}
	}

	if oldestKey != "" {
		delete(s.entries, oldestKey)
		s.evictions++
	}
}

// Sweep removes expired entries and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Stop gracefully stops the expiry sweep
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Store) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stopChan:
			return
		}
	}
}
