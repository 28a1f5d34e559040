package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sluicehq/sluice/internal/lock"
	"github.com/sluicehq/sluice/internal/logging"
	"github.com/sluicehq/sluice/internal/mapper"
	"github.com/sluicehq/sluice/internal/metrics"
	"github.com/sluicehq/sluice/internal/models"
	"github.com/sluicehq/sluice/internal/notify"
)

// RecordStore is the dedup store contract the pipeline needs.
// *store.Store satisfies it.
type RecordStore interface {
	EnsureSchema(ctx context.Context) error
	Exists(ctx context.Context, sid string) (bool, error)
	Append(ctx context.Context, record models.Record) error
	Recent(ctx context.Context, limit int) ([]map[string]string, error)
}

// DefaultInboxLimit caps the read endpoint when no limit is supplied.
const DefaultInboxLimit = 50

// IngestService orchestrates mapping, dedup and append for each verified
// webhook delivery, and serves the read API.
type IngestService struct {
	store     RecordStore
	mapper    *mapper.Mapper
	locker    lock.Locker
	publisher notify.Publisher
	logger    *logging.Logger
}

func NewIngestService(store RecordStore, m *mapper.Mapper, locker lock.Locker, publisher notify.Publisher, logger *logging.Logger) *IngestService {
	if locker == nil {
		locker = lock.NoOpLocker{}
	}
	if publisher == nil {
		publisher = notify.NoOpPublisher{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &IngestService{
		store:     store,
		mapper:    m,
		locker:    locker,
		publisher: publisher,
		logger:    logger,
	}
}

// Ingest persists one inbound event unless a record with its message SID
// already exists. Redelivery of a known SID is a silent no-op: that is the
// idempotency mechanism for the provider's at-least-once delivery. Store
// failures surface as ErrStorageUnavailable and are not retried here.
func (s *IngestService) Ingest(ctx context.Context, form models.Form) (stored bool, err error) {
	start := time.Now()
	defer func() {
		metrics.IngestDuration.Observe(time.Since(start).Seconds())
	}()

	sid := form.MessageSID()
	if sid != "" {
		release, lockErr := s.locker.Acquire(ctx, sid)
		if lockErr != nil {
			// Degrade to the lockless accepted-gap behavior rather than
			// dropping the event.
			s.logger.WarnContext(ctx, "sid lock unavailable, proceeding unlocked",
				"message_sid", sid, "error", lockErr.Error())
		} else {
			defer release()
		}
	}

	if err := s.store.EnsureSchema(ctx); err != nil {
		metrics.StorageErrors.Inc()
		return false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	record, hasMedia := s.mapper.Map(form, time.Now().UTC())

	exists, err := s.store.Exists(ctx, sid)
	if err != nil {
		metrics.StorageErrors.Inc()
		return false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if exists {
		metrics.DuplicatesTotal.Inc()
		s.logger.InfoContext(ctx, "duplicate delivery skipped", "message_sid", sid)
		return false, nil
	}

	if err := s.store.Append(ctx, record); err != nil {
		metrics.StorageErrors.Inc()
		return false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	metrics.RecordsStoredTotal.Inc()

	if err := s.publisher.Publish(ctx, record); err != nil {
		// Fan-out is best-effort; the record is already persisted.
		s.logger.WarnContext(ctx, "record fan-out failed",
			"message_sid", sid, "error", err.Error())
	}

	s.logger.InfoContext(ctx, "record stored",
		"message_sid", sid,
		"sender", record.Sender,
		"num_media", record.NumMedia,
		"has_media", hasMedia,
	)
	return true, nil
}

// Recent returns the most recent limit records, newest-last, each keyed by
// the live header names. A non-positive limit uses DefaultInboxLimit.
func (s *IngestService) Recent(ctx context.Context, limit int) ([]map[string]string, error) {
	if limit <= 0 {
		limit = DefaultInboxLimit
	}

	if err := s.store.EnsureSchema(ctx); err != nil {
		metrics.StorageErrors.Inc()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	records, err := s.store.Recent(ctx, limit)
	if err != nil {
		metrics.StorageErrors.Inc()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return records, nil
}
