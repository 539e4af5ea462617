package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/winiceo/kevio/internal/api/metrics"
	"github.com/winiceo/kevio/internal/core/domain"
	"github.com/winiceo/kevio/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

type taskKind string

const (
	taskCreated taskKind = "created"
	taskUpdated taskKind = "updated"
	taskDeleted taskKind = "deleted"
)

type syncTask struct {
	kind      taskKind
	before    *domain.User
	after     *domain.User
	loginOnly bool
}

func (t syncTask) userID() string {
	if t.after != nil {
		return t.after.ID
	}
	return t.before.ID
}

// Dispatcher routes access sync tasks to a fixed set of workers using
// consistent hashing on the user id, guaranteeing per-user ordering while
// different users' syncs run concurrently.
type Dispatcher struct {
	workers []chan syncTask
	sync    ports.AccessSync
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sync ports.AccessSync, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan syncTask, numWorkers),
		sync:    sync,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan syncTask, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// UserCreated enqueues a sync task for a freshly persisted user.
func (d *Dispatcher) UserCreated(user *domain.User) {
	d.enqueue(syncTask{kind: taskCreated, after: user})
}

// UserUpdated enqueues a sync task carrying the before/after snapshot pair.
func (d *Dispatcher) UserUpdated(before, after *domain.User, loginOnly bool) {
	d.enqueue(syncTask{kind: taskUpdated, before: before, after: after, loginOnly: loginOnly})
}

// UserDeleted enqueues a sync task for a removed user.
func (d *Dispatcher) UserDeleted(user *domain.User) {
	d.enqueue(syncTask{kind: taskDeleted, before: user})
}

// enqueue sends a task to the worker responsible for its user id.
// The call is non-blocking up to channelBuffer capacity.
func (d *Dispatcher) enqueue(t syncTask) {
	i := d.shardIndex(t.userID())
	d.workers[i] <- t
	metrics.SyncQueueDepth.WithLabelValues(strconv.Itoa(i)).Set(float64(len(d.workers[i])))
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan syncTask) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-ch:
			if !ok {
				return
			}
			d.process(ctx, id, t)
			metrics.SyncQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(ch)))
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, workerID int, t syncTask) {
	start := time.Now()

	var err error
	switch t.kind {
	case taskCreated:
		err = d.sync.UserCreated(ctx, t.after)
	case taskUpdated:
		err = d.sync.UserUpdated(ctx, t.before, t.after, t.loginOnly)
	case taskDeleted:
		err = d.sync.UserDeleted(ctx, t.before)
	}

	metrics.SyncTaskDuration.WithLabelValues(string(t.kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SyncTasksTotal.WithLabelValues(string(t.kind), "error").Inc()
		d.log.Error().Err(err).
			Str("user_id", t.userID()).
			Str("kind", string(t.kind)).
			Int("worker_id", workerID).
			Msg("access sync failed")
		return
	}
	metrics.SyncTasksTotal.WithLabelValues(string(t.kind), "ok").Inc()
}
