package request

import (
	"context"
	"net/http"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/semaphore"
)

// WaitGroupConcurrencyLimit is the maximum number of concurrent requests in one WaitGroup.
const WaitGroupConcurrencyLimit = 8

// WaitGroup allows sending requests concurrently using Send method
// and wait until all requests are completed using the Wait method.
//
// The request starts immediately after calling the Send method.
// If an error occurs, sending will not stop, all requests will be sent.
// Wait method at the end returns all errors that have occurred, if any.
type WaitGroup struct {
	ctx    context.Context
	sender Sender
	wg     *sync.WaitGroup     // wait for all
	sem    *semaphore.Weighted // limit concurrency

	lock *sync.Mutex // for err
	err  *multierror.Error
}

// NewWaitGroup creates new WaitGroup.
// The sender can be nil, then the Request fallback chain is used.
func NewWaitGroup(ctx context.Context, sender Sender) *WaitGroup {
	return NewWaitGroupWithLimit(ctx, sender, WaitGroupConcurrencyLimit)
}

// NewWaitGroupWithLimit creates new WaitGroup with given concurrent requests limit.
func NewWaitGroupWithLimit(ctx context.Context, sender Sender, limit int64) *WaitGroup {
	return &WaitGroup{ctx: ctx, sender: sender, wg: &sync.WaitGroup{}, sem: semaphore.NewWeighted(limit), lock: &sync.Mutex{}}
}

// Wait for all requests to complete. All errors that have occurred will be returned.
func (g *WaitGroup) Wait() error {
	g.wg.Wait()
	g.lock.Lock()
	defer g.lock.Unlock()
	// If there is only one error, then unwrap multierror
	if g.err != nil && len(g.err.Errors) == 1 {
		return g.err.Errors[0]
	}
	return g.err.ErrorOrNil()
}

// Send a concurrent request.
func (g *WaitGroup) Send(r Request) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		// Limit number of concurrent requests
		if err := g.sem.Acquire(g.ctx, 1); err != nil {
			// Ctx is done
			g.addError(err)
			return
		}
		defer g.sem.Release(1)

		done := make(chan struct{})
		r = r.WithOnComplete(func(_ context.Context, _ *http.Response, err error) error {
			defer close(done)
			if err != nil {
				g.addError(err)
			}
			return err
		})

		if _, err := r.SendE(g.ctx, g.sender); err != nil {
			g.addError(err)
			return
		}
		<-done
	}()
}

func (g *WaitGroup) addError(err error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.err = multierror.Append(g.err, err)
}
