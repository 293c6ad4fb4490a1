// Package pagebrowser pushes change notifications to the page rendering
// service whenever an archive file's scans change.
package pagebrowser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/archivebase/scanrepo/pkg/jobs"
)

// Action is the kind of notification sent downstream.
type Action string

const (
	ActionRefresh Action = "refresh"
	ActionDelete  Action = "delete"
)

// Notice identifies one notification. Equal notices inside the coalescing
// window collapse into a single delivery.
type Notice struct {
	Action        Action
	EadID         string
	ArchiveFileID string
}

// Sender delivers a notice to the downstream service.
type Sender interface {
	Send(ctx context.Context, notice Notice) error
}

// Metrics receives delivery counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	NoticeSent(action string)
	NoticeCoalesced()
}

// Config tunes coalescing and delivery.
type Config struct {
	CoalesceWindow time.Duration
	Workers        int
	Retries        int
	Metrics        Metrics
	Logger         *zap.Logger
}

// Notifier coalesces duplicate notices and delivers them asynchronously on
// a worker queue. Mutations keep flowing even when the downstream service
// is slow or down.
type Notifier struct {
	sender  Sender
	window  time.Duration
	metrics Metrics
	logger  *zap.Logger
	queue   *jobs.Queue

	mu     sync.Mutex
	recent map[Notice]time.Time
}

// NewNotifier builds a notifier around the sender.
func NewNotifier(sender Sender, cfg Config) *Notifier {
	if cfg.CoalesceWindow <= 0 {
		cfg.CoalesceWindow = 20 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	n := &Notifier{
		sender:  sender,
		window:  cfg.CoalesceWindow,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		recent:  make(map[Notice]time.Time),
	}
	n.queue = jobs.NewQueue("pagebrowser", n.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		Logger:     cfg.Logger,
	})
	return n
}

// Start begins delivery workers.
func (n *Notifier) Start(ctx context.Context) {
	n.queue.Start(ctx)
}

// Stop drains the workers.
func (n *Notifier) Stop() {
	n.queue.Stop()
}

// QueueDepth reports the notices waiting for a delivery worker.
func (n *Notifier) QueueDepth() int {
	return n.queue.Depth()
}

// Refresh announces that an archive file changed.
func (n *Notifier) Refresh(eadID, archiveFileID string) {
	n.enqueue(Notice{Action: ActionRefresh, EadID: eadID, ArchiveFileID: archiveFileID})
}

// Delete announces that an archive file disappeared.
func (n *Notifier) Delete(eadID, archiveFileID string) {
	n.enqueue(Notice{Action: ActionDelete, EadID: eadID, ArchiveFileID: archiveFileID})
}

func (n *Notifier) enqueue(notice Notice) {
	now := time.Now()

	n.mu.Lock()
	if last, ok := n.recent[notice]; ok && now.Sub(last) < n.window {
		n.mu.Unlock()
		if n.metrics != nil {
			n.metrics.NoticeCoalesced()
		}
		return
	}
	n.recent[notice] = now
	n.sweepLocked(now)
	n.mu.Unlock()

	err := n.queue.Enqueue(jobs.Job{
		Type:    string(notice.Action),
		Payload: notice,
	})
	if err != nil {
		n.logger.Warn("pagebrowser notice dropped",
			zap.String("action", string(notice.Action)),
			zap.String("archivefile_id", notice.ArchiveFileID),
			zap.Error(err))
	}
}

// sweepLocked drops stale entries so the dedup map stays bounded.
func (n *Notifier) sweepLocked(now time.Time) {
	if len(n.recent) < 1024 {
		return
	}
	for notice, seen := range n.recent {
		if now.Sub(seen) >= n.window {
			delete(n.recent, notice)
		}
	}
}

func (n *Notifier) handle(ctx context.Context, job jobs.Job) error {
	notice, ok := job.Payload.(Notice)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	if err := n.sender.Send(ctx, notice); err != nil {
		return err
	}
	if n.metrics != nil {
		n.metrics.NoticeSent(string(notice.Action))
	}
	return nil
}
