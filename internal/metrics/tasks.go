package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/events"
	"github.com/prometheus/client_golang/prometheus"
)

// collectTimeout bounds the store queries made during a scrape.
const collectTimeout = 5 * time.Second

// StatusCounter reports how many tasks are in each status.
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error)
}

// EventHandler returns a handler that counts task lifecycle events.
func (m *Metrics) EventHandler() events.EventHandler {
	return events.HandlerFunc(func(_ context.Context, event *events.TaskEvent) error {
		m.taskEvents.WithLabelValues(string(event.Type)).Inc()
		return nil
	})
}

// RegisterTaskCounts exposes the current number of tasks per status,
// queried from counter at scrape time.
func (m *Metrics) RegisterTaskCounts(counter StatusCounter, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	return m.registry.Register(&taskCountCollector{
		counter: counter,
		logger:  logger.With("component", "task_count_collector"),
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "", NameTasks),
			"Current tasks by status",
			[]string{LabelStatus},
			nil,
		),
	})
}

type taskCountCollector struct {
	counter StatusCounter
	logger  *slog.Logger
	desc    *prometheus.Desc
}

func (c *taskCountCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect emits nothing when the count fails; the scrape itself still succeeds.
func (c *taskCountCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	counts, err := c.counter.CountByStatus(ctx)
	if err != nil {
		c.logger.Warn("failed to count tasks for metrics", "error", err)
		return
	}

	for _, status := range domain.AllTaskStatuses() {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(counts[status]), string(status))
	}
}
