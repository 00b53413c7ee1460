// Package dispatch runs engine operations on a bounded pool of executor
// goroutines. A per-runtime serial queue admits at most one job for its
// runtime into the pool at a time, so operations on one runtime execute
// exclusively and in submission order while distinct runtimes run in
// parallel.
package dispatch

import (
	"sync"

	"github.com/embedvm/jsvm/types"
)

// Job is one engine operation. Exactly one of run or fail is invoked.
type Job struct {
	run  func()
	fail func(err error)
}

// NewJob creates a job. run executes the operation; fail reports that the
// job was rejected before it could run.
func NewJob(run func(), fail func(err error)) *Job {
	return &Job{run: run, fail: fail}
}

// Pool is a fixed-size executor pool. The size is set once at construction
// and is not reconfigurable.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*Job
	closed bool
	wg     sync.WaitGroup
}

// NewPool starts size workers. Sizes below one are clamped to one.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

// Submit queues a job for execution. After Close it fails with ShuttingDown.
func (p *Pool) Submit(j *Job) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return types.NewShuttingDown()
	}
	p.queue = append(p.queue, j)
	p.cond.Signal()
	p.mu.Unlock()
	return nil
}

// Close stops admission, fails every queued job with ShuttingDown, lets
// running jobs finish and joins all workers before returning. Closing an
// already-closed pool just waits for the workers.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		pending := p.queue
		p.queue = nil
		p.cond.Broadcast()
		p.mu.Unlock()
		for _, j := range pending {
			j.fail(types.NewShuttingDown())
		}
	} else {
		p.mu.Unlock()
	}
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		j := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()
		j.run()
	}
}
