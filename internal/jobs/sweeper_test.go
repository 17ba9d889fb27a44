package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sqlgate/internal/service"
	"sqlgate/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweeper_RunOnce(t *testing.T) {
	var got time.Time
	repo := &testutil.MockExceptionRepo{
		MarkExpiredFn: func(_ context.Context, now time.Time) (int64, error) {
			got = now
			return 2, nil
		},
	}
	s := NewSweeper(service.NewExceptionService(repo), "", discardLogger())

	s.RunOnce(context.Background())
	assert.WithinDuration(t, time.Now(), got, time.Minute)
}

func TestSweeper_RunOnce_SwallowsError(t *testing.T) {
	repo := &testutil.MockExceptionRepo{
		MarkExpiredFn: func(_ context.Context, _ time.Time) (int64, error) {
			return 0, errors.New("db gone")
		},
	}
	s := NewSweeper(service.NewExceptionService(repo), "", discardLogger())

	// Must not panic; the next tick retries.
	s.RunOnce(context.Background())
}

func TestSweeper_StartRejectsBadSchedule(t *testing.T) {
	s := NewSweeper(service.NewExceptionService(&testutil.MockExceptionRepo{}), "not a schedule", discardLogger())
	err := s.Start()
	assert.Error(t, err)
}

func TestSweeper_DefaultSchedule(t *testing.T) {
	s := NewSweeper(service.NewExceptionService(&testutil.MockExceptionRepo{}), "", discardLogger())
	assert.Equal(t, DefaultSweepSchedule, s.schedule)
}
