package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/signature-verify/internal/logging"
)

// ErrNotFound indicates no match log exists for the requested id and owner.
var ErrNotFound = errors.New("match log not found")

// MatchLog represents a persisted signature comparison.
type MatchLog struct {
	ID         uint      `gorm:"primaryKey"`
	RequestID  string    `gorm:"column:request_id;uniqueIndex;size:64"`
	UserID     string    `gorm:"column:user_id;index;size:64"`
	Score      float64   `gorm:"column:score"`
	Decision   string    `gorm:"column:decision;size:16"`
	Image1SHA1 string    `gorm:"column:image1_sha1;size:40"`
	Image2SHA1 string    `gorm:"column:image2_sha1;size:40"`
	PairSHA1   string    `gorm:"column:pair_sha1;index;size:40"`
	LatencyMS  float64   `gorm:"column:latency_ms"`
	Details    string    `gorm:"column:details;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (MatchLog) TableName() string {
	return "match_logs"
}

// MetricsAggregation carries the aggregate columns computed over match logs.
type MetricsAggregation struct {
	TotalCount       int64   `gorm:"column:total_count"`
	MatchCount       int64   `gorm:"column:match_count"`
	AverageScore     float64 `gorm:"column:average_score"`
	AverageLatencyMS float64 `gorm:"column:average_latency_ms"`
}

// MatchRepository provides persistence APIs for match logs. Transient
// database errors are retried with exponential backoff before surfacing.
type MatchRepository struct {
	db             *gorm.DB
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewMatchRepository creates a new repository instance.
func NewMatchRepository(db *gorm.DB, logger *zap.Logger) *MatchRepository {
	return &MatchRepository{
		db:             db,
		logger:         logger.Named("match_repository"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// AutoMigrate ensures the schema is available.
func (r *MatchRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&MatchLog{})
}

// SaveLog persists a match log entry.
func (r *MatchRepository) SaveLog(ctx context.Context, log *MatchLog) error {
	return r.executeWithRetry(ctx, "repository.save_log", log.RequestID, func() error {
		return r.db.WithContext(ctx).Create(log).Error
	})
}

// FindByRequestIDAndUser retrieves a match log matching the request and owner.
func (r *MatchRepository) FindByRequestIDAndUser(ctx context.Context, requestID, userID string) (*MatchLog, error) {
	var log MatchLog
	err := r.executeWithRetry(ctx, "repository.find_by_request_id", requestID, func() error {
		var row MatchLog
		err := r.db.WithContext(ctx).First(&row, "request_id = ? AND user_id = ?", requestID, userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		log = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// FindDuplicatesByPairHash retrieves other match logs for the same user that
// compared the same pair of images.
func (r *MatchRepository) FindDuplicatesByPairHash(ctx context.Context, userID, pairHash, excludeRequestID string) ([]*MatchLog, error) {
	var logs []*MatchLog
	err := r.executeWithRetry(ctx, "repository.find_duplicates", excludeRequestID, func() error {
		return r.db.WithContext(ctx).
			Where("user_id = ? AND pair_sha1 = ? AND request_id <> ?", userID, pairHash, excludeRequestID).
			Order("created_at DESC").
			Find(&logs).Error
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// AggregateMetrics computes summary statistics over all persisted match logs.
func (r *MatchRepository) AggregateMetrics(ctx context.Context) (*MetricsAggregation, error) {
	var agg MetricsAggregation
	err := r.executeWithRetry(ctx, "repository.aggregate_metrics", "", func() error {
		return r.db.WithContext(ctx).
			Model(&MatchLog{}).
			Select("COUNT(*) AS total_count, " +
				"COALESCE(SUM(CASE WHEN decision = 'match' THEN 1 ELSE 0 END), 0) AS match_count, " +
				"COALESCE(AVG(score), 0) AS average_score, " +
				"COALESCE(AVG(latency_ms), 0) AS average_latency_ms").
			Scan(&agg).Error
	})
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

func (r *MatchRepository) executeWithRetry(ctx context.Context, operation, requestID string, fn func() error) error {
	if r.retryAttempts <= 1 {
		return logging.NewOperationError(operation, requestID, fn())
	}

	backoff := r.initialBackoff
	opLogger := logging.WithOperation(r.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < r.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= r.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("database operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == r.retryAttempts-1 {
			opLogger.Error("database operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient database error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
