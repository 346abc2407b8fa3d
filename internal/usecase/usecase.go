// Package usecase implements the processing orchestration for signature
// cleaning and matching. It owns the batch fan-out, the decision threshold,
// timing telemetry, and the caching and audit policies around both pipelines.
package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/signature-verify/internal/imaging"
	"github.com/example/signature-verify/internal/logging"
	"github.com/example/signature-verify/internal/repository"
	"github.com/example/signature-verify/internal/signature"
)

const defaultMaxParallel = 4

// ModelGateway defines the inference operations needed by the use case.
type ModelGateway interface {
	Clean(ctx context.Context, img *imaging.Image) (*imaging.Image, error)
	Compare(ctx context.Context, a, b *imaging.Image) (float64, error)
}

// MatchRepository defines the persistence operations needed by the use case.
type MatchRepository interface {
	SaveLog(ctx context.Context, log *repository.MatchLog) error
	FindByRequestIDAndUser(ctx context.Context, requestID, userID string) (*repository.MatchLog, error)
	FindDuplicatesByPairHash(ctx context.Context, userID, pairHash, excludeRequestID string) ([]*repository.MatchLog, error)
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// ProcessingUseCase encapsulates business logic for the cleaning and
// matching pipelines.
type ProcessingUseCase struct {
	repo           MatchRepository
	cache          Cache
	gateway        ModelGateway
	logger         *zap.Logger
	threshold      float64
	maxParallel    int
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewProcessingUseCase constructs a new use case instance. Out-of-range
// threshold or parallelism values fall back to defaults.
func NewProcessingUseCase(repo MatchRepository, cache Cache, gateway ModelGateway, logger *zap.Logger, threshold float64, maxParallel int) *ProcessingUseCase {
	if threshold <= 0 || threshold > 1 {
		threshold = signature.DefaultMatchThreshold
	}
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}
	return &ProcessingUseCase{
		repo:           repo,
		cache:          cache,
		gateway:        gateway,
		logger:         logger.Named("processing_usecase"),
		threshold:      threshold,
		maxParallel:    maxParallel,
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

func (uc *ProcessingUseCase) withRedisRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		return logging.NewOperationError(operation, requestID, fn())
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == uc.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func (uc *ProcessingUseCase) withRedisGet(ctx context.Context, requestID, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, requestID, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
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
