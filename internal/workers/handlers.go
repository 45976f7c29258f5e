package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/launchkit-dev/launchkit/internal/auth"
	"github.com/launchkit-dev/launchkit/internal/metrics"
	"github.com/launchkit-dev/launchkit/internal/storage"
	"github.com/launchkit-dev/launchkit/internal/tasks"
)

// HandlePurgeExpiredSessions deletes every session whose expiry has passed
func HandlePurgeExpiredSessions(ctx context.Context, t *asynq.Task, db *gorm.DB, rec metrics.Recorder, logger zerolog.Logger) error {
	purged, err := auth.PurgeExpiredSessions(ctx, db, time.Now())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to purge expired sessions")
		return err
	}

	rec.RecordSessionsPurged(purged)
	logger.Info().Int64("purged", purged).Msg("Expired sessions purged")
	return nil
}

// HandleRemoveObject deletes an uploaded object after its record was removed
func HandleRemoveObject(ctx context.Context, t *asynq.Task, store storage.ObjectStore, logger zerolog.Logger) error {
	payload, err := tasks.ParseRemoveObjectPayload(t)
	if err != nil {
		// A malformed payload will never succeed
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log := logger.With().Str("bucket", payload.Bucket).Str("key", payload.Key).Logger()

	if err := store.Remove(ctx, payload.Bucket, payload.Key); err != nil {
		log.Warn().Err(err).Msg("Failed to remove object, will retry")
		return err
	}

	log.Info().Msg("Object removed")
	return nil
}
