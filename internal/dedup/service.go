package dedup

import (
	"context"
	"fmt"
	"time"

	"conduit/internal/config"
	"conduit/internal/constants"
	"conduit/internal/logger"
	"conduit/pkg/metrics"
	"conduit/pkg/models"
	"conduit/pkg/tracing"
)

const defaultTTL = time.Hour

// Service decides whether a message was already accepted. It satisfies the
// queue's Deduplicator.
type Service struct {
	store        Store
	hasher       *Hasher
	ttl          time.Duration
	allowOnError bool
	logger       logger.Logger
	now          func() time.Time
}

func NewService(store Store, cfg config.DedupConfig, log logger.Logger) (*Service, error) {
	hasher, err := NewHasher(cfg.Fields)
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if log == nil {
		log = logger.NopLogger()
	}
	return &Service{
		store:        store,
		hasher:       hasher,
		ttl:          ttl,
		allowOnError: cfg.OnError != constants.FallbackReject,
		logger:       log,
		now:          time.Now,
	}, nil
}

// IsDuplicate claims the message's key and reports whether it was already
// taken. A store failure lets the message through unless the service was
// configured to reject on error.
func (s *Service) IsDuplicate(ctx context.Context, msg *models.Message) (bool, error) {
	ctx, span := tracing.GetTracer("conduit-dedup").Start(ctx, "dedup.check")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	key := constants.CacheKeyPrefixDedup + s.hasher.Hash(msg)
	claimed, err := s.store.SetNX(ctx, key, s.now().Unix(), s.ttl)
	if err != nil {
		return s.handleStoreError(ctx, err, msg.ID)
	}

	if !claimed {
		metrics.IncDedupCheck("duplicate")
		s.logger.InfowCtx(ctx, "Duplicate message rejected", "message_id", msg.ID)
		return true, nil
	}
	metrics.IncDedupCheck("unique")
	return false, nil
}

func (s *Service) handleStoreError(ctx context.Context, err error, msgID string) (bool, error) {
	if s.allowOnError {
		metrics.IncDedupCheck("error_allowed")
		s.logger.WarnwCtx(ctx, "Dedup store error, allowing message (fallback: allow)",
			"message_id", msgID,
			"error", err,
		)
		return false, nil
	}
	metrics.IncDedupCheck("error_rejected")
	return false, fmt.Errorf("dedup check for message %s failed: %w", msgID, err)
}
