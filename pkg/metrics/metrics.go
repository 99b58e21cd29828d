package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	initOnce sync.Once

	sweepPasses        metric.Int64Counter
	remindersProcessed metric.Int64Counter
	dueAlerts          metric.Int64Counter
	missedEscalations  metric.Int64Counter
	fanoutRows         metric.Int64Counter
	pushSuccesses      metric.Int64Counter
	pushFailures       metric.Int64Counter
)

// Init 注册领域指标，失败只降级不致命
func Init() error {
	var err error

	initOnce.Do(func() {
		meter := otel.Meter("pillsync")

		sweepPasses, err = meter.Int64Counter(
			"reminder.sweep.passes",
			metric.WithDescription("Number of completed sweep passes"),
			metric.WithUnit("{pass}"),
		)
		if err != nil {
			return
		}

		remindersProcessed, err = meter.Int64Counter(
			"reminder.processed",
			metric.WithDescription("Reminders evaluated by either trigger path"),
			metric.WithUnit("{reminder}"),
		)
		if err != nil {
			return
		}

		dueAlerts, err = meter.Int64Counter(
			"reminder.due_alerts",
			metric.WithDescription("Due alerts surfaced"),
			metric.WithUnit("{alert}"),
		)
		if err != nil {
			return
		}

		missedEscalations, err = meter.Int64Counter(
			"reminder.missed_escalations",
			metric.WithDescription("Missed-dose escalations published"),
			metric.WithUnit("{escalation}"),
		)
		if err != nil {
			return
		}

		fanoutRows, err = meter.Int64Counter(
			"notification.fanout.rows",
			metric.WithDescription("Notification rows written during fan-out"),
			metric.WithUnit("{row}"),
		)
		if err != nil {
			return
		}

		pushSuccesses, err = meter.Int64Counter(
			"push.deliveries.success",
			metric.WithDescription("FCM pushes delivered"),
			metric.WithUnit("{push}"),
		)
		if err != nil {
			return
		}

		pushFailures, err = meter.Int64Counter(
			"push.deliveries.failure",
			metric.WithDescription("FCM pushes failed"),
			metric.WithUnit("{push}"),
		)
	})

	return err
}

func RecordSweepPass(ctx context.Context, processed, alerts int) {
	if sweepPasses == nil {
		return
	}
	sweepPasses.Add(ctx, 1)
	remindersProcessed.Add(ctx, int64(processed), metric.WithAttributes(attribute.String("trigger", "sweep")))
	dueAlerts.Add(ctx, int64(alerts), metric.WithAttributes(attribute.String("trigger", "sweep")))
}

func RecordTickProcessed(ctx context.Context, processed, alerts int) {
	if remindersProcessed == nil {
		return
	}
	remindersProcessed.Add(ctx, int64(processed), metric.WithAttributes(attribute.String("trigger", "session")))
	dueAlerts.Add(ctx, int64(alerts), metric.WithAttributes(attribute.String("trigger", "session")))
}

func RecordMissedEscalation(ctx context.Context) {
	if missedEscalations == nil {
		return
	}
	missedEscalations.Add(ctx, 1)
}

func RecordFanoutRows(ctx context.Context, count int, notifyType string) {
	if fanoutRows == nil {
		return
	}
	fanoutRows.Add(ctx, int64(count), metric.WithAttributes(attribute.String("type", notifyType)))
}

func RecordPushSuccess(ctx context.Context) {
	if pushSuccesses == nil {
		return
	}
	pushSuccesses.Add(ctx, 1)
}

func RecordPushFailure(ctx context.Context) {
	if pushFailures == nil {
		return
	}
	pushFailures.Add(ctx, 1)
}
