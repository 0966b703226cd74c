package automation

import (
	"context"
	"errors"
	"sync"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/llm"
	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/models"
)

// Batch is one contiguous slice of the run's product list. Start is the
// zero-based offset of the first item in the full list.
type Batch struct {
	Index int
	Start int
	Items []models.Product
}

// partition splits products into ordered batches of at most size items.
// The last batch may be shorter; every product lands in exactly one batch.
func partition(products []models.Product, size int) []Batch {
	if size <= 0 {
		size = 1
	}
	batches := make([]Batch, 0, (len(products)+size-1)/size)
	for start := 0; start < len(products); start += size {
		end := start + size
		if end > len(products) {
			end = len(products)
		}
		batches = append(batches, Batch{
			Index: len(batches),
			Start: start,
			Items: products[start:end],
		})
	}
	return batches
}

// runBatches processes batches with at most maxParallel handlers in
// flight. Batches are dispatched in order. A stop request or a fatal
// handler error prevents new batches from starting; handlers already in
// flight run to completion. The first fatal error is returned.
func (rc *RunContext) runBatches(ctx context.Context, batches []Batch, maxParallel int, handler func(context.Context, Batch) error) error {
	if maxParallel <= 0 {
		maxParallel = 1
	}

	jobs := make(chan Batch)
	var wg sync.WaitGroup
	var fatalMu sync.Mutex
	var fatalErr error

	setFatal := func(err error) {
		fatalMu.Lock()
		if fatalErr == nil {
			fatalErr = err
		}
		fatalMu.Unlock()
		rc.abort()
	}

	for i := 0; i < maxParallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobs {
				if !rc.Running() || ctx.Err() != nil {
					continue
				}
				if err := handler(ctx, b); err != nil {
					if isFatal(err) {
						setFatal(err)
						continue
					}
					// Non-fatal batch failure: count every item as errored
					// and keep going.
					rc.logf("error", "batch %d failed: %v", b.Index+1, err)
					for range b.Items {
						rc.tick(outcomeError)
					}
				}
			}
		}()
	}

	for _, b := range batches {
		if !rc.Running() || ctx.Err() != nil {
			break
		}
		jobs <- b
	}
	close(jobs)
	wg.Wait()

	fatalMu.Lock()
	defer fatalMu.Unlock()
	return fatalErr
}

// isFatal reports whether a batch error must abort the whole run rather
// than fail just that batch.
func isFatal(err error) bool {
	return errors.Is(err, llm.ErrQuotaExhausted) || errors.Is(err, context.Canceled)
}
