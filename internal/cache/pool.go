package cache

import (
	"context"
	"sync"
	"sync/atomic"
)

// job is one unit of work for the pool. Whoever takes it first (a worker,
// or a waiter after the pool is closed) runs it, and done is closed once
// it has run or been dropped.
type job struct {
	path   string
	urgent bool
	run    func()
	taken  atomic.Bool
	done   chan struct{}
}

func newJob(path string, urgent bool, run func()) *job {
	return &job{path: path, urgent: urgent, run: run, done: make(chan struct{})}
}

func (j *job) execute() bool {
	if !j.taken.CompareAndSwap(false, true) {
		return false
	}
	defer close(j.done)
	j.run()
	return true
}

func (j *job) drop() {
	if j.taken.CompareAndSwap(false, true) {
		close(j.done)
	}
}

// pool is a fixed set of workers draining one queue. Urgent jobs go to the
// front; prefetch jobs are appended in the order requested, at most one per
// path, and can be cancelled until a worker picks them up.
type pool struct {
	mu      sync.Mutex
	queue   []*job
	pending map[string]*job
	wake    chan struct{}
	ctx     context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

func newPool(workers int) *pool {
	ctx, stop := context.WithCancel(context.Background())
	p := &pool{
		pending: make(map[string]*job),
		wake:    make(chan struct{}, workers),
		ctx:     ctx,
		stop:    stop,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *pool) worker() {
	defer p.wg.Done()
	for {
		if p.ctx.Err() != nil {
			return
		}
		if j := p.pop(); j != nil {
			j.execute()
			continue
		}
		select {
		case <-p.ctx.Done():
			return
		case <-p.wake:
		}
	}
}

func (p *pool) pop() *job {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil
	}
	j := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	if !j.urgent {
		delete(p.pending, j.path)
	}
	return j
}

// push queues j. It reports false when the pool is closed or a prefetch job
// for the same path is already waiting.
func (p *pool) push(j *job) bool {
	p.mu.Lock()
	if p.ctx.Err() != nil {
		p.mu.Unlock()
		return false
	}
	if j.urgent {
		p.queue = append([]*job{j}, p.queue...)
	} else {
		if _, ok := p.pending[j.path]; ok {
			p.mu.Unlock()
			return false
		}
		p.pending[j.path] = j
		p.queue = append(p.queue, j)
	}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return true
}

// wait blocks until j has run. Once the pool is closed the caller runs the
// job itself unless a worker already has it.
func (p *pool) wait(j *job) {
	select {
	case <-j.done:
	case <-p.ctx.Done():
		if !j.execute() {
			<-j.done
		}
	}
}

// cancel drops the queued prefetch job for path, if any.
func (p *pool) cancel(path string) bool {
	p.mu.Lock()
	j, ok := p.pending[path]
	if !ok {
		p.mu.Unlock()
		return false
	}
	delete(p.pending, path)
	for i, q := range p.queue {
		if q == j {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			break
		}
	}
	p.mu.Unlock()
	j.drop()
	return true
}

// cancelAll drops every queued prefetch job. Urgent jobs stay.
func (p *pool) cancelAll() int {
	p.mu.Lock()
	kept := p.queue[:0]
	var dropped []*job
	for _, j := range p.queue {
		if j.urgent {
			kept = append(kept, j)
		} else {
			dropped = append(dropped, j)
		}
	}
	for i := len(kept); i < len(p.queue); i++ {
		p.queue[i] = nil
	}
	p.queue = kept
	p.pending = make(map[string]*job)
	p.mu.Unlock()

	for _, j := range dropped {
		j.drop()
	}
	return len(dropped)
}

func (p *pool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// close stops the workers and waits for running jobs to return.
func (p *pool) close() {
	p.stop()
	p.cancelAll()
	p.wg.Wait()
}
