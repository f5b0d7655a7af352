package app

import (
	"log/slog"
	"sync"
	"time"
)

// Loop runs a Session on its own goroutine. UI callbacks hand work to it
// with Do; a ticker polls the extraction pipeline between tasks.
type Loop struct {
	session  *Session
	logger   *slog.Logger
	interval time.Duration

	tasks  chan func(*Session)
	stopCh chan struct{}
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewLoop creates a loop around s that polls every interval.
func NewLoop(s *Session, interval time.Duration, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Loop{
		session:  s,
		logger:   logger,
		interval: interval,
		tasks:    make(chan func(*Session), 64),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the loop goroutine.
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		go l.run()
	})
}

// Do queues fn to run on the loop goroutine. It returns false once the loop
// has stopped.
func (l *Loop) Do(fn func(*Session)) bool {
	select {
	case <-l.stopCh:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.stopCh:
		return false
	}
}

// Call runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Call(fn func(*Session)) bool {
	finished := make(chan struct{})
	if !l.Do(func(s *Session) {
		defer close(finished)
		fn(s)
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

// Stop halts the loop, waits for it to exit and closes the session.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		l.Start() // ensure done is closed even if never started
		<-l.done
		l.session.Close()
	})
}

func (l *Loop) run() {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case fn := <-l.tasks:
			l.safely(fn)
		case <-ticker.C:
			l.safely(func(s *Session) { s.Poll() })
		}
	}
}

// safely runs fn, logging instead of crashing on panic.
func (l *Loop) safely(fn func(*Session)) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("recovered panic in session task", "panic", r)
		}
	}()
	fn(l.session)
}
