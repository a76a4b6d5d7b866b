package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubCleaner struct {
	removed int64
	err     error
	calls   int
}

func (s *stubCleaner) DeleteUnsubscribed(ctx context.Context) (int64, error) {
	s.calls++
	return s.removed, s.err
}

func TestCleanupService_Run(t *testing.T) {
	t.Parallel()

	cleaner := &stubCleaner{removed: 4}
	svc := NewCleanupService(cleaner)

	err := svc.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, cleaner.calls)
}

func TestCleanupService_Run_Failure(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("deadlock detected")
	svc := NewCleanupService(&stubCleaner{err: wantErr})

	err := svc.Run(context.Background())

	assert.ErrorIs(t, err, wantErr)
}
