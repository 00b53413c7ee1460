package dispatch

import "sync"

// Serial is the per-runtime admission queue. It keeps at most one of its
// jobs inside the shared pool, which makes execution on one runtime
// exclusive and strictly FIFO without ever blocking a pool worker on a
// lock.
type Serial struct {
	pool *Pool

	mu       sync.Mutex
	cond     *sync.Cond // signalled when active drops to false
	pending  []*Job
	active   bool
	closed   bool
	closeErr error
}

// NewSerial creates a queue feeding the given pool.
func NewSerial(pool *Pool) *Serial {
	s := &Serial{pool: pool}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Submit appends a job in FIFO order. After Close it fails with the close
// error.
func (s *Serial) Submit(j *Job) error {
	s.mu.Lock()
	if s.closed {
		err := s.closeErr
		s.mu.Unlock()
		return err
	}
	s.pending = append(s.pending, j)
	if !s.active {
		s.active = true
		s.dispatchLocked()
	}
	s.mu.Unlock()
	return nil
}

// Close rejects queued jobs with err, stops admission and waits for the
// job currently in the pool, if any, to finish.
func (s *Serial) Close(err error) {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		s.closeErr = err
		rest := s.pending
		s.pending = nil
		s.mu.Unlock()
		for _, j := range rest {
			j.fail(err)
		}
		s.mu.Lock()
	}
	for s.active {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// dispatchLocked admits the head job to the pool. Caller holds s.mu and
// has set active.
func (s *Serial) dispatchLocked() {
	j := s.pending[0]
	s.pending = s.pending[1:]
	wrapped := NewJob(
		func() {
			j.run()
			s.onDone()
		},
		func(err error) {
			j.fail(err)
			s.onDone()
		},
	)
	if err := s.pool.Submit(wrapped); err != nil {
		rest := s.pending
		s.pending = nil
		s.active = false
		s.cond.Broadcast()
		j.fail(err)
		for _, q := range rest {
			q.fail(err)
		}
	}
}

// onDone runs after a job leaves the pool and admits the next one.
func (s *Serial) onDone() {
	s.mu.Lock()
	if s.closed {
		rest := s.pending
		s.pending = nil
		s.active = false
		s.cond.Broadcast()
		err := s.closeErr
		s.mu.Unlock()
		for _, q := range rest {
			q.fail(err)
		}
		return
	}
	if len(s.pending) > 0 {
		s.dispatchLocked()
		s.mu.Unlock()
		return
	}
	s.active = false
	s.cond.Broadcast()
	s.mu.Unlock()
}
