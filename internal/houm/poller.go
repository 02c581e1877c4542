package houm

import (
	"sync"
	"time"
)

// Poller invokes a callback at a fixed interval on a background
// goroutine: callback first, then the interval wait, repeating until
// stopped.
//
// Stop has join semantics: it signals cancellation and blocks until
// the background goroutine has exited, so no callback invocation
// begins after Stop returns. One invocation already in flight when
// Stop is called is allowed to complete. The wait between invocations
// is interrupted by Stop.
type Poller struct {
	mu       sync.Mutex
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	started  bool
}

// NewPoller creates an idle poller. Call Start to begin.
func NewPoller() *Poller {
	return &Poller{}
}

// Start launches the background loop. Returns ErrPollerRunning if the
// poller was already started.
func (p *Poller) Start(interval time.Duration, callback func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrPollerRunning
	}
	p.started = true
	p.done = make(chan struct{})

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		timer := time.NewTimer(0) // fire immediately for the first pass
		defer timer.Stop()

		for {
			select {
			case <-p.done:
				return
			case <-timer.C:
			}

			callback()
			timer.Reset(interval)
		}
	}()

	return nil
}

// Stop signals cancellation and blocks until the loop has exited.
// Safe to call multiple times and on a poller that never started.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}
