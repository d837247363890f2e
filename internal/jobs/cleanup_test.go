package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/homestash/homestash-server/internal/model"
)

type mockLabelRepo struct {
	deleteOrphanedCount int64
	calls               atomic.Int64
}

func (m *mockLabelRepo) Upsert(ctx context.Context, label model.Label) error {
	return nil
}

func (m *mockLabelRepo) Find(ctx context.Context, accountID, code string, category model.ScanCategory) (*model.Label, error) {
	return nil, nil
}

func (m *mockLabelRepo) DeleteOrphaned(ctx context.Context) (int64, error) {
	m.calls.Add(1)
	return m.deleteOrphanedCount, nil
}

func TestCleanupJob(t *testing.T) {
	t.Run("creates job with correct interval", func(t *testing.T) {
		job := NewCleanupJob(nil, 5*time.Minute)

		assert.NotNil(t, job)
		assert.Equal(t, 5*time.Minute, job.interval)
	})

	t.Run("starts and stops without panic", func(t *testing.T) {
		labelRepo := &mockLabelRepo{}

		job := NewCleanupJob(labelRepo, 100*time.Millisecond)

		job.Start()
		time.Sleep(50 * time.Millisecond)
		job.Stop()
	})

	t.Run("runs cleanup on start", func(t *testing.T) {
		labelRepo := &mockLabelRepo{deleteOrphanedCount: 3}

		job := NewCleanupJob(labelRepo, 1*time.Hour)

		job.Start()
		time.Sleep(20 * time.Millisecond)
		job.Stop()

		assert.GreaterOrEqual(t, labelRepo.calls.Load(), int64(1))
	})
}
