package worker

import (
	"sync"

	"github.com/ownage/approvedeny-go"
)

// IdempotencyStore remembers handled webhook deliveries and the check
// request responses fetched for them. A key maps to false while a worker
// holds it and to true once the delivery is handled.
type IdempotencyStore struct {
	mu        sync.Mutex
	store     map[string]bool
	responses map[string]approvedeny.Document
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		store:     make(map[string]bool),
		responses: make(map[string]approvedeny.Document),
	}
}

// Has reports whether a key (event ID or signature) is handled or held.
func (s *IdempotencyStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, found := s.store[key]
	return found
}

// Set marks a key as handled.
func (s *IdempotencyStore) Set(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[key] = true
}

// Reserve claims key for the calling worker. It returns false when the key
// is already handled or held by another worker.
func (s *IdempotencyStore) Reserve(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.store[key]; found {
		return false
	}
	s.store[key] = false
	return true
}

// Release drops a reservation that did not complete, so a redelivery of the
// same event is processed again. Handled keys are kept.
func (s *IdempotencyStore) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if done, found := s.store[key]; found && !done {
		delete(s.store, key)
	}
}

// SetResponse records the latest response document for a check request.
func (s *IdempotencyStore) SetResponse(checkRequestID string, doc approvedeny.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[checkRequestID] = doc
}

// Response returns the stored response document for a check request.
func (s *IdempotencyStore) Response(checkRequestID string) (approvedeny.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.responses[checkRequestID]
	return doc, ok
}
