package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/example/signature-verify/internal/logging"
	"github.com/example/signature-verify/internal/repository"
)

// DuplicateReport lists earlier comparisons of the same image pair by the
// same user.
type DuplicateReport struct {
	Request    *repository.MatchLog
	Duplicates []*repository.MatchLog
}

// GetResult retrieves a cached match outcome or loads it from persistence.
// Results are scoped to their owner; a cached entry for another user falls
// through to the database lookup.
func (uc *ProcessingUseCase) GetResult(ctx context.Context, userID, requestID string) (*repository.MatchLog, error) {
	cacheKey := resultCacheKey(requestID)
	if cached, err := uc.withRedisGet(ctx, requestID, "cache.get.result", cacheKey); err == nil {
		var payload cachedMatch
		if err := json.Unmarshal([]byte(cached), &payload); err != nil {
			logging.WithOperation(uc.logger, "usecase.get_result", requestID).Warn("failed to decode cached result", zap.Error(err))
		} else if payload.UserID == userID {
			return &repository.MatchLog{
				RequestID:  payload.RequestID,
				UserID:     payload.UserID,
				Score:      payload.Score,
				Decision:   payload.Decision,
				Image1SHA1: payload.Image1SHA1,
				Image2SHA1: payload.Image2SHA1,
				PairSHA1:   payload.PairSHA1,
				LatencyMS:  payload.LatencyMS,
				CreatedAt:  payload.CreatedAt,
			}, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logging.WithOperation(uc.logger, "usecase.get_result", requestID).Warn("failed to read cache", zap.Error(err))
	}

	return uc.repo.FindByRequestIDAndUser(ctx, requestID, userID)
}

// GetDuplicateReport builds a duplicate detection report for a match request.
func (uc *ProcessingUseCase) GetDuplicateReport(ctx context.Context, userID, requestID string) (*DuplicateReport, error) {
	log, err := uc.repo.FindByRequestIDAndUser(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}

	duplicates, err := uc.repo.FindDuplicatesByPairHash(ctx, userID, log.PairSHA1, log.RequestID)
	if err != nil {
		return nil, err
	}

	return &DuplicateReport{
		Request:    log,
		Duplicates: duplicates,
	}, nil
}
