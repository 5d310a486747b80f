package main

import (
	"context"
	"sync"

	"peek/internal/logger"
	"peek/internal/navigator"
)

// command runs on the controller goroutine. A non-empty return value is
// shown as an overlay message.
type command struct {
	name string
	run  func(*navigator.Controller) string
}

// commandLoop owns the navigator. The controller blocks while the current
// image decodes, so it runs on its own goroutine and the game loop only
// reads the last published snapshot; that keeps Loading on screen instead
// of a frozen frame.
type commandLoop struct {
	ctrl      *navigator.Controller
	queue     chan command
	onMessage func(string)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	snapshot navigator.Snapshot
}

const commandQueueSize = 64

func newCommandLoop(ctrl *navigator.Controller, onMessage func(string)) *commandLoop {
	ctx, cancel := context.WithCancel(context.Background())
	l := &commandLoop{
		ctrl:      ctrl,
		queue:     make(chan command, commandQueueSize),
		onMessage: onMessage,
		ctx:       ctx,
		cancel:    cancel,
		snapshot:  ctrl.CurrentView(),
	}
	ctrl.SetObserver(l.publish)
	return l
}

func (l *commandLoop) publish(s navigator.Snapshot) {
	l.mu.Lock()
	l.snapshot = s
	l.mu.Unlock()
}

// Snapshot returns the latest published controller state
func (l *commandLoop) Snapshot() navigator.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot
}

func (l *commandLoop) start() {
	l.wg.Add(1)
	go l.run()
}

func (l *commandLoop) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.ctx.Done():
			return
		case cmd := <-l.queue:
			msg := cmd.run(l.ctrl)
			l.publish(l.ctrl.CurrentView())
			if msg != "" && l.onMessage != nil {
				l.onMessage(msg)
			}
		}
	}
}

// submit queues cmd without blocking the caller. Commands are dropped when
// the queue is full or the loop has stopped.
func (l *commandLoop) submit(name string, run func(*navigator.Controller) string) bool {
	select {
	case <-l.ctx.Done():
		return false
	default:
	}

	select {
	case l.queue <- command{name: name, run: run}:
		return true
	default:
		logger.Debug("Dropping command %s: queue full", name)
		return false
	}
}

// stop waits for the running command, if any, and discards the rest.
func (l *commandLoop) stop() {
	l.cancel()
	l.wg.Wait()
}
