package notify_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"portal/internal/notify"
	"portal/internal/queue"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
	done chan struct{}
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{done: make(chan struct{}, 8)}
}

func (m *recordingMailer) Send(_ context.Context, n notify.Notification) error {
	m.mu.Lock()
	m.sent = append(m.sent, n)
	m.mu.Unlock()
	m.done <- struct{}{}
	return m.err
}

func TestRenderMeetingAnnouncement(t *testing.T) {
	n, err := notify.RenderMeetingAnnouncement(notify.MeetingAnnouncement{
		Title:      "Sync <urgent>",
		Date:       "2024-07-01",
		StartTime:  "10:00",
		EndTime:    "11:00",
		Location:   "Room 4",
		Department: "Physics",
	}, []notify.Recipient{{Email: "a@example.com"}})
	require.NoError(t, err)
	require.Equal(t, "New Meeting Scheduled: Sync <urgent>", n.Subject)
	require.Contains(t, n.HTML, "Sync &lt;urgent&gt;")
	require.Contains(t, n.HTML, "Room 4")
	require.Contains(t, n.Text, "Time: 10:00 - 11:00")
	require.Contains(t, n.Text, "for Physics")
	require.Len(t, n.Recipients, 1)
}

func TestDispatcherSkipsEmptyRecipients(t *testing.T) {
	q := queue.NewInMemory(1)
	d := notify.NewDispatcher(q)
	require.NoError(t, d.Notify(context.Background(), notify.Notification{Subject: "x"}))

	// The buffer is still free, so a second publish does not block.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, q.Publish(ctx, queue.Message{ID: "probe"}))
}

func TestWorkerDeliversQueuedNotifications(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewInMemory(4)
	mailer := newRecordingMailer()
	w := notify.NewWorker(q, mailer, zerolog.New(io.Discard), time.Second)

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	d := notify.NewDispatcher(q)
	require.NoError(t, d.Notify(ctx, notify.Notification{
		Recipients: []notify.Recipient{{Email: "s@example.com"}},
		Subject:    "hello",
	}))

	select {
	case <-mailer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
	mailer.mu.Lock()
	require.Equal(t, "hello", mailer.sent[0].Subject)
	mailer.mu.Unlock()

	cancel()
	require.NoError(t, <-errCh)
}

func TestWorkerSurvivesMailerFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewInMemory(4)
	mailer := newRecordingMailer()
	mailer.err = errors.New("smtp down")
	w := notify.NewWorker(q, mailer, zerolog.New(io.Discard), time.Second)
	go func() { _ = w.Run(ctx) }()

	d := notify.NewDispatcher(q)
	for i := 0; i < 2; i++ {
		require.NoError(t, d.Notify(ctx, notify.Notification{
			Recipients: []notify.Recipient{{Email: "s@example.com"}},
			Subject:    "again",
		}))
	}
	for i := 0; i < 2; i++ {
		select {
		case <-mailer.done:
		case <-time.After(2 * time.Second):
			t.Fatal("worker stopped after a failed delivery")
		}
	}
}

func TestLogMailer(t *testing.T) {
	m := notify.NewLogMailer(zerolog.New(io.Discard))
	require.NoError(t, m.Send(context.Background(), notify.Notification{Subject: "x"}))
}

func TestBackendMailer(t *testing.T) {
	log := zerolog.New(io.Discard)

	m, err := notify.Backend{}.Mailer(log)
	require.NoError(t, err)
	require.IsType(t, &notify.LogMailer{}, m)

	m, err = notify.Backend{Kind: "SMTP", SMTP: notify.SMTPConfig{Host: "mail.example.edu", Port: 25}}.Mailer(log)
	require.NoError(t, err)
	require.IsType(t, &notify.SMTPMailer{}, m)

	m, err = notify.Backend{Kind: "sendgrid", SendGridKey: "SG.x", SMTP: notify.SMTPConfig{FromEmail: "a@b.c"}}.Mailer(log)
	require.NoError(t, err)
	require.IsType(t, &notify.SendGridMailer{}, m)

	_, err = notify.Backend{Kind: "sendgrid"}.Mailer(log)
	require.Error(t, err)
	_, err = notify.Backend{Kind: "pigeon"}.Mailer(log)
	require.Error(t, err)
}
