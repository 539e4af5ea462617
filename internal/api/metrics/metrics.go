// Package metrics defines and registers all custom Prometheus metrics for the
// kevio identity service. It is the single source of truth for metric names,
// labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kevio"

// ── Access sync metrics ───────────────────────────────────────────────────────

// SyncTasksTotal counts access sync tasks that finished processing.
// Labels:
//   - kind: the lifecycle event ("created", "updated", "deleted")
//   - result: "ok" or "error"
var SyncTasksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_tasks_total",
		Help:      "Total number of access sync tasks processed, by lifecycle kind and result.",
	},
	[]string{"kind", "result"},
)

// SyncTaskDuration measures how long a single sync task takes end-to-end,
// from dequeue to the last ACL store call.
var SyncTaskDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sync_task_duration_seconds",
		Help:      "Duration of access sync task processing.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"kind"},
)

// SyncQueueDepth tracks the number of tasks waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var SyncQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sync_queue_depth",
		Help:      "Current number of sync tasks pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── ACL store metrics ─────────────────────────────────────────────────────────

// ACLOperationsTotal counts calls against the external ACL store.
// Labels:
//   - op: "add" or "remove"
//   - result: "ok" or "error"
var ACLOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "acl_operations_total",
		Help:      "Total number of ACL store add/remove operations, by result.",
	},
	[]string{"op", "result"},
)
