package worker

import (
	"context"
	"sync"
	"time"
)

// Task is one unit of work. Key identifies it in the Result.
type Task struct {
	Key string
	Run func(ctx context.Context) error
}

type Result struct {
	Key string
	Err error
}

// Pool runs tasks on a fixed number of goroutines, optionally throttled to a
// global rate so upstream APIs are not hammered.
type Pool struct {
	workers int
	tasks   chan Task
	wg      sync.WaitGroup
	mu      sync.RWMutex
	rate    <-chan time.Time
	ticker  *time.Ticker
}

func NewPool(workers, buffer int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &Pool{
		workers: workers,
		tasks:   make(chan Task, buffer),
	}
}

func (p *Pool) SetRateLimit(rps int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
		p.rate = nil
	}
	if rps <= 0 {
		return
	}
	p.ticker = time.NewTicker(time.Second / time.Duration(rps))
	p.rate = p.ticker.C
}

// Submit blocks while the buffer is full. It must not be called after Close.
func (p *Pool) Submit(t Task) {
	if p == nil || t.Run == nil {
		return
	}
	p.tasks <- t
}

// Close stops intake. Queued tasks still run at the configured rate; the
// ticker is released once the workers exit.
func (p *Pool) Close() {
	if p == nil {
		return
	}
	close(p.tasks)
}

func (p *Pool) stopRate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
		p.rate = nil
	}
}

// Run starts the workers. The result channel is closed once every worker has
// exited, either because Close drained the queue or ctx ended.
func (p *Pool) Run(ctx context.Context) <-chan Result {
	if p == nil {
		out := make(chan Result)
		close(out)
		return out
	}
	out := make(chan Result, p.workers*16)

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case t, ok := <-p.tasks:
					if !ok {
						return
					}
					p.mu.RLock()
					rate := p.rate
					p.mu.RUnlock()
					if rate != nil {
						select {
						case <-ctx.Done():
							return
						case <-rate:
						}
					}
					err := t.Run(ctx)
					select {
					case <-ctx.Done():
						return
					case out <- Result{Key: t.Key, Err: err}:
					}
				}
			}
		}()
	}

	go func() {
		p.wg.Wait()
		p.stopRate()
		close(out)
	}()

	return out
}

// RunAll submits every task, closes the pool and collects the results.
func RunAll(ctx context.Context, workers, rps int, tasks []Task) []Result {
	p := NewPool(workers, len(tasks))
	p.SetRateLimit(rps)
	results := p.Run(ctx)
	for _, t := range tasks {
		p.Submit(t)
	}
	p.Close()

	out := make([]Result, 0, len(tasks))
	for r := range results {
		out = append(out, r)
	}
	return out
}
