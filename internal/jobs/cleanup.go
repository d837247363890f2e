package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/homestash/homestash-server/internal/repository"
)

// CleanupJob periodically prunes cached label images whose item or
// storage cell no longer exists.
type CleanupJob struct {
	labelRepo repository.LabelRepository
	interval  time.Duration
	done      chan struct{}
}

func NewCleanupJob(labelRepo repository.LabelRepository, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		labelRepo: labelRepo,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.runCleanup(ctx, "orphaned labels", j.labelRepo.DeleteOrphaned)
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
