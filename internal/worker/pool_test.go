package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/cenkalti/backoff/v4"

	"github.com/ownage/approvedeny-go"
	"github.com/ownage/approvedeny-go/internal/models"
)

type fetchResult struct {
	doc approvedeny.Document
	err error
}

// stubFetcher replays results in order and repeats the last one.
type stubFetcher struct {
	mu      sync.Mutex
	results []fetchResult
	calls   []string
}

func (s *stubFetcher) GetCheckRequestResponse(_ context.Context, id string) (approvedeny.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, id)
	r := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return r.doc, r.err
}

func newTestPool(store *IdempotencyStore, fetcher ResponseFetcher) *Pool {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	pool := NewPool(1, logger, store, fetcher)
	pool.NewBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	pool.MaxRetries = 2
	return pool
}

func runOne(pool *Pool, job models.Job) {
	pool.Start(context.Background(), 1) // Start one worker.
	pool.JobQueue <- job                // Send one job.
	close(pool.JobQueue)                // Close the queue to make the worker exit after this job.
	pool.wg.Wait()                      // Wait for the worker to finish.
}

func TestWorkerLogic(t *testing.T) {
	approved := approvedeny.Document{"status": "approved"}
	networkErr := errors.New("connection reset by peer")

	testCases := []struct {
		name                   string
		initialStoreState      map[string]bool
		event                  models.CheckRequestEvent
		signature              string
		results                []fetchResult
		expectedFinalStoreKeys []string
		expectedCalls          int
		expectResponseStored   bool
	}{
		{
			name:                   "Success Case - Response fetched and event ID stored",
			initialStoreState:      map[string]bool{},
			event:                  models.CheckRequestEvent{ID: "evt_1", CheckRequestID: "req_1"},
			results:                []fetchResult{{doc: approved}},
			expectedFinalStoreKeys: []string{"evt_1"},
			expectedCalls:          1,
			expectResponseStored:   true,
		},
		{
			name:                   "Success Case - Signature used when event has no ID",
			initialStoreState:      map[string]bool{},
			event:                  models.CheckRequestEvent{CheckRequestID: "req_1"},
			signature:              "abc123",
			results:                []fetchResult{{doc: approved}},
			expectedFinalStoreKeys: []string{"sig:abc123"},
			expectedCalls:          1,
			expectResponseStored:   true,
		},
		{
			name:                   "Transient Error Case - Retried until success",
			initialStoreState:      map[string]bool{},
			event:                  models.CheckRequestEvent{ID: "evt_2", CheckRequestID: "req_2"},
			results:                []fetchResult{{err: networkErr}, {err: networkErr}, {doc: approved}},
			expectedFinalStoreKeys: []string{"evt_2"},
			expectedCalls:          3,
			expectResponseStored:   true,
		},
		{
			name:                   "Transient Error Case - Retries exhausted, event ID stored",
			initialStoreState:      map[string]bool{},
			event:                  models.CheckRequestEvent{ID: "evt_3", CheckRequestID: "req_3"},
			results:                []fetchResult{{err: networkErr}},
			expectedFinalStoreKeys: []string{"evt_3"},
			expectedCalls:          3, // first attempt plus MaxRetries
		},
		{
			name:                   "Permanent Error Case - Non-object response is not retried",
			initialStoreState:      map[string]bool{},
			event:                  models.CheckRequestEvent{ID: "evt_4", CheckRequestID: "req_4"},
			results:                []fetchResult{{doc: nil}},
			expectedFinalStoreKeys: []string{"evt_4"},
			expectedCalls:          1,
		},
		{
			name:                   "Permanent Error Case - Missing check request ID",
			initialStoreState:      map[string]bool{},
			event:                  models.CheckRequestEvent{ID: "evt_5"},
			results:                []fetchResult{{doc: approved}},
			expectedFinalStoreKeys: []string{"evt_5"},
			expectedCalls:          0,
		},
		{
			name: "Duplicate Event Case - Event is ignored, store is unchanged",
			initialStoreState: map[string]bool{
				"evt_dup": true, // This ID is already in the store.
			},
			event:                  models.CheckRequestEvent{ID: "evt_dup", CheckRequestID: "req_6"},
			results:                []fetchResult{{doc: approved}},
			expectedFinalStoreKeys: []string{"evt_dup"},
			expectedCalls:          0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// 1. Setup
			idempotencyStore := NewIdempotencyStore()
			for key := range tc.initialStoreState {
				idempotencyStore.Set(key)
			}
			fetcher := &stubFetcher{results: tc.results}
			pool := newTestPool(idempotencyStore, fetcher)
			payloadBytes, _ := json.Marshal(tc.event)

			// 2. Execute
			runOne(pool, models.NewJob(payloadBytes, tc.signature))

			// 3. Assert
			if len(fetcher.calls) != tc.expectedCalls {
				t.Errorf("incorrect number of API calls: got %d, want %d", len(fetcher.calls), tc.expectedCalls)
			}

			_, stored := idempotencyStore.Response(tc.event.CheckRequestID)
			if stored != tc.expectResponseStored {
				t.Errorf("response stored = %v, want %v", stored, tc.expectResponseStored)
			}

			// We check the internal state of the store for this test.
			idempotencyStore.mu.Lock()
			defer idempotencyStore.mu.Unlock()

			if len(idempotencyStore.store) != len(tc.expectedFinalStoreKeys) {
				t.Errorf("incorrect number of keys in store: got %d, want %d", len(idempotencyStore.store), len(tc.expectedFinalStoreKeys))
			}
			for _, key := range tc.expectedFinalStoreKeys {
				if _, found := idempotencyStore.store[key]; !found {
					t.Errorf("expected key %q not found in store", key)
				}
			}
		})
	}

	// Special case: test unparseable JSON
	t.Run("Failure - Unparseable JSON", func(t *testing.T) {
		idempotencyStore := NewIdempotencyStore()
		fetcher := &stubFetcher{results: []fetchResult{{doc: approved}}}
		pool := newTestPool(idempotencyStore, fetcher)

		runOne(pool, models.NewJob([]byte(`{"invalid-json`), ""))

		if len(idempotencyStore.store) != 0 {
			t.Errorf("store should be empty after unparseable JSON, but has %d keys", len(idempotencyStore.store))
		}
		if len(fetcher.calls) != 0 {
			t.Errorf("no API call expected, got %d", len(fetcher.calls))
		}
	})
}

func TestWorkerCanceledContext(t *testing.T) {
	idempotencyStore := NewIdempotencyStore()
	fetcher := &stubFetcher{results: []fetchResult{{err: context.Canceled}}}
	pool := newTestPool(idempotencyStore, fetcher)
	pool.NewBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(1 << 40) }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	payloadBytes, _ := json.Marshal(models.CheckRequestEvent{ID: "evt_c", CheckRequestID: "req_c"})
	pool.Start(ctx, 1)
	pool.JobQueue <- models.NewJob(payloadBytes, "")
	close(pool.JobQueue)
	pool.wg.Wait()

	if idempotencyStore.Has("evt_c") {
		t.Errorf("an abandoned event must stay eligible for redelivery")
	}
}

// gatedFetcher blocks every call until gate is closed.
type gatedFetcher struct {
	entered chan struct{}
	gate    chan struct{}
	mu      sync.Mutex
	calls   int
}

func (g *gatedFetcher) GetCheckRequestResponse(ctx context.Context, _ string) (approvedeny.Document, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	g.entered <- struct{}{}
	select {
	case <-g.gate:
		return approvedeny.Document{"status": "approved"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestWorkerInFlightDuplicateIsSkipped(t *testing.T) {
	idempotencyStore := NewIdempotencyStore()
	fetcher := &gatedFetcher{entered: make(chan struct{}, 2), gate: make(chan struct{})}
	pool := newTestPool(idempotencyStore, fetcher)
	pool.JobQueue = make(chan models.Job, 2)

	payloadBytes, _ := json.Marshal(models.CheckRequestEvent{ID: "evt_twice", CheckRequestID: "req_twice"})
	pool.Start(context.Background(), 2)

	pool.JobQueue <- models.NewJob(payloadBytes, "")
	<-fetcher.entered // The first delivery is now mid-fetch.
	pool.JobQueue <- models.NewJob(payloadBytes, "")
	close(pool.JobQueue)

	close(fetcher.gate)
	pool.wg.Wait()

	if fetcher.calls != 1 {
		t.Errorf("a redelivery during an in-flight fetch must not fetch again: got %d calls", fetcher.calls)
	}
	if !idempotencyStore.Has("evt_twice") {
		t.Errorf("expected the event to be marked handled")
	}
}

func TestWorkerReservedKeyIsDuplicate(t *testing.T) {
	idempotencyStore := NewIdempotencyStore()
	if !idempotencyStore.Reserve("evt_held") {
		t.Fatal("expected to reserve a fresh key")
	}
	fetcher := &stubFetcher{results: []fetchResult{{doc: approvedeny.Document{}}}}
	pool := newTestPool(idempotencyStore, fetcher)

	payloadBytes, _ := json.Marshal(models.CheckRequestEvent{ID: "evt_held", CheckRequestID: "req_held"})
	runOne(pool, models.NewJob(payloadBytes, ""))

	if len(fetcher.calls) != 0 {
		t.Errorf("a key held by another worker must be skipped, got %d calls", len(fetcher.calls))
	}
}
