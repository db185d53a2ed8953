package sync

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/taskboard/internal/api"
	"github.com/nhle/taskboard/internal/model"
)

// SyncState represents the current state of the poller.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "syncing"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// SyncStatus holds the outcome of the latest poll.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// RefreshMsg is a tea.Msg sent when a poll completes.
type RefreshMsg struct {
	Tasks []model.Task
	Err   error
	// AuthFailed is set when the server rejected the credentials.
	AuthFailed bool
	// Started is when the fetch began. Edits made after it win over
	// Tasks.
	Started time.Time
}

// Fetcher lists every live task.
type Fetcher interface {
	ListAll(ctx context.Context) ([]model.Task, error)
}

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// defaultInterval is used when no positive interval is configured.
const defaultInterval = 60 * time.Second

// Poller refreshes the board from the server in the background.
type Poller struct {
	fetcher   Fetcher
	interval  time.Duration
	log       log.FieldLogger
	status    SyncStatus
	resultCh  chan RefreshMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        sync.Mutex
	running   bool
}

// New creates a Poller. A non-positive interval falls back to one minute.
func New(f Fetcher, interval time.Duration, logger log.FieldLogger) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Poller{
		fetcher:   f,
		interval:  interval,
		log:       logger.WithField("component", "poller"),
		resultCh:  make(chan RefreshMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start returns a tea.Cmd that starts the polling goroutine and
// subscribes to results. The goroutine fetches once immediately.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Refresh triggers an immediate poll. A trigger already queued absorbs
// this one.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// Status returns the outcome of the latest poll.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.fetch()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.fetch()
		case <-p.triggerCh:
			p.fetch()
		}
	}
}

// fetch performs a single poll and sends the result.
func (p *Poller) fetch() {
	p.setStatus(SyncRunning, nil)
	started := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	tasks, err := p.fetcher.ListAll(ctx)
	if err != nil {
		p.setStatus(SyncError, err)
		p.log.WithError(err).Warn("poll failed")
		p.sendResult(RefreshMsg{Err: err, AuthFailed: api.IsAuthError(err), Started: started})
		return
	}

	p.setStatus(SyncIdle, nil)
	p.log.WithField("tasks", len(tasks)).Debug("poll complete")
	p.sendResult(RefreshMsg{Tasks: tasks, Started: started})
}

func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// sendResult sends a RefreshMsg on the result channel without blocking.
func (p *Poller) sendResult(msg RefreshMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case result := <-p.resultCh:
			return result
		case <-p.stopCh:
			return nil
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll.
// Call it after handling a RefreshMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
