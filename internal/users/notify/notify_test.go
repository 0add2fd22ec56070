package notify_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/quizverse/quizverse/internal/users/notify"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	r := &notify.Recorder{}

	require.NoError(t, r.Send(ctx, notify.Message{To: "a@x.edu", Subject: "one", Body: "1"}))
	require.NoError(t, r.Send(ctx, notify.Message{To: "b@x.edu", Subject: "two", Body: "2"}))
	require.NoError(t, r.Send(ctx, notify.Message{To: "a@x.edu", Subject: "three", Body: "3"}))

	last, ok := r.Last("a@x.edu")
	require.True(t, ok)
	require.Equal(t, "three", last.Subject)
	require.Len(t, r.Messages(), 3)

	_, ok = r.Last("nobody@x.edu")
	require.False(t, ok)

	boom := errors.New("relay down")
	r.SetErr(boom)
	require.ErrorIs(t, r.Send(ctx, notify.Message{To: "a@x.edu"}), boom)
	require.Len(t, r.Messages(), 3)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := &notify.LogSender{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	require.NoError(t, s.Send(context.Background(), notify.Message{To: "a@x.edu", Subject: "Email Verification", Body: "Your OTP is 123456."}))
	require.Contains(t, buf.String(), `"to":"a@x.edu"`)
	require.Contains(t, buf.String(), `"subject":"Email Verification"`)
	require.Equal(t, "log", s.Name())
}

func TestThrottled(t *testing.T) {
	rec := &notify.Recorder{}
	th := notify.NewThrottled(rec, 0.001, 1)
	require.Equal(t, "recorder+throttled", th.Name())

	require.NoError(t, th.Send(context.Background(), notify.Message{To: "a@x.edu"}))

	// The bucket is empty and refills far slower than the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, th.Send(ctx, notify.Message{To: "a@x.edu"}))
	require.Len(t, rec.Messages(), 1)
}

func TestSMTPSender(t *testing.T) {
	_, err := notify.NewSMTPSender(notify.SMTPConfig{From: "noreply@x.edu"})
	require.Error(t, err)

	_, err = notify.NewSMTPSender(notify.SMTPConfig{Host: "localhost"})
	require.Error(t, err)

	s, err := notify.NewSMTPSender(notify.SMTPConfig{Host: "127.0.0.1", Port: 1, From: "noreply@x.edu"})
	require.NoError(t, err)
	require.Equal(t, "smtp", s.Name())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = s.Send(ctx, notify.Message{To: "a@x.edu", Subject: "s", Body: "b"})
	require.Error(t, err, "nothing listens on port 1")
}
