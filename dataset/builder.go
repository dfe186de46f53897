package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/tsawler/go-mnist/ctxlog"
	"github.com/tsawler/go-mnist/record"
)

// ErrPreparationInFlight is returned by Prepare while a run is active.
// Preparation requests against one Builder must be serialized.
var ErrPreparationInFlight = errors.New("dataset preparation already in flight")

// tickBuffer decouples the decode loop from progress delivery; the
// decode loop blocks when observers fall this far behind.
const tickBuffer = 64

// Stats is a point-in-time snapshot of the current or most recent run.
type Stats struct {
	Decoded int
	Skipped int
	Running bool
}

// Builder streams a Source through record.Decode on a background
// goroutine, accumulating examples into a Batch while publishing
// progress through its Tracker.
//
// Record policy: a record that fails to decode is skipped. It is
// counted in Stats.Skipped and logged, it does not produce a progress
// tick, and the run continues with the next record. Only source
// failures and cancellation end a run early.
type Builder struct {
	tracker *Tracker

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	decoded int
	skipped int
}

// NewBuilder returns a Builder with a fresh Tracker.
func NewBuilder() *Builder {
	return &Builder{tracker: NewTracker()}
}

// Tracker exposes the preparation state machine for observation.
func (b *Builder) Tracker() *Tracker {
	return b.tracker
}

// Stats returns the decoded/skipped counters of the current or most
// recent run.
func (b *Builder) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{Decoded: b.decoded, Skipped: b.skipped, Running: b.running}
}

// Cancel stops the in-flight preparation, if any. The run winds down
// asynchronously and its failure channel receives context.Canceled.
func (b *Builder) Cancel() {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Prepare starts a background run that drains src to exhaustion. It
// returns immediately; exactly one of the returned channels delivers.
//
// On success the finished Batch arrives on the batch channel, strictly
// after the final progress tick and the Ready transition. On source
// failure or cancellation the error arrives on the failure channel,
// the state remains Preparing, and no Batch is published.
//
// onProgress, when non-nil, is invoked once per decoded record with
// counts 1..N, strictly increasing and contiguous. Ticks are delivered
// from a dispatch goroutine owned by the run, decoupled from the
// decode loop, in the same order the Tracker observes them.
//
// A second Prepare against a running Builder fails with
// ErrPreparationInFlight. A new run after Ready, failure, or
// cancellation re-enters Preparing with a zero count.
func (b *Builder) Prepare(parent context.Context, src Source, onProgress func(count int)) (<-chan *Batch, <-chan error, error) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return nil, nil, ErrPreparationInFlight
	}
	ctx, cancel := context.WithCancel(parent)
	b.running = true
	b.cancel = cancel
	b.decoded = 0
	b.skipped = 0
	b.mu.Unlock()

	b.tracker.begin()

	batchCh := make(chan *Batch, 1)
	errCh := make(chan error, 1)
	ticks := make(chan int, tickBuffer)

	var dispatch sync.WaitGroup
	dispatch.Add(1)
	go func() {
		defer dispatch.Done()
		for count := range ticks {
			b.tracker.tick(count)
			if onProgress != nil {
				onProgress(count)
			}
		}
	}()

	go func() {
		defer cancel()
		logger := ctxlog.FromContext(parent)

		var examples []*record.Example
		count := 0

		runErr := func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				fields, err := src.Next()
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return fmt.Errorf("dataset source failed: %w", err)
				}

				ex, err := record.Decode(fields)
				if err != nil {
					b.mu.Lock()
					b.skipped++
					b.mu.Unlock()
					logger.Warn("skipping malformed record", "error", err)
					continue
				}

				examples = append(examples, ex)
				count++
				b.mu.Lock()
				b.decoded = count
				b.mu.Unlock()

				select {
				case ticks <- count:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}()

		close(ticks)
		dispatch.Wait()

		b.mu.Lock()
		b.running = false
		b.cancel = nil
		b.mu.Unlock()

		if runErr != nil {
			errCh <- runErr
			return
		}

		b.tracker.finish()
		batchCh <- newBatch(examples)
	}()

	return batchCh, errCh, nil
}
