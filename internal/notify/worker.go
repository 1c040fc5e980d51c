package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"portal/internal/metrics"
	"portal/internal/queue"
)

// Worker drains notification messages and hands them to a Mailer.
// Delivery is at most once: failures are logged and counted, never retried.
type Worker struct {
	q       queue.Queue
	mailer  Mailer
	log     zerolog.Logger
	timeout time.Duration
}

// NewWorker wires a consumer. timeout bounds one delivery.
func NewWorker(q queue.Queue, mailer Mailer, log zerolog.Logger, timeout time.Duration) *Worker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Worker{q: q, mailer: mailer, log: log, timeout: timeout}
}

// Run blocks until ctx is cancelled or the queue closes.
func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.q.Consume(ctx)
	if err != nil {
		return err
	}
	w.log.Info().Msg("notification worker started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg queue.Message) {
	if msg.Type != MessageType {
		w.log.Warn().Str("id", msg.ID).Str("type", msg.Type).Msg("ignoring unknown message type")
		return
	}
	n, err := decode(msg)
	if err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		w.log.Error().Err(err).Str("id", msg.ID).Msg("decode notification")
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.mailer.Send(sendCtx, n); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		w.log.Error().Err(err).Str("id", msg.ID).Str("subject", n.Subject).Int("recipients", len(n.Recipients)).Msg("deliver notification")
		return
	}
	metrics.Notifications.WithLabelValues("sent").Inc()
	w.log.Info().Str("id", msg.ID).Str("subject", n.Subject).Int("recipients", len(n.Recipients)).Msg("notification delivered")
}
