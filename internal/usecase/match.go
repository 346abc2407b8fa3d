package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/signature-verify/internal/imaging"
	"github.com/example/signature-verify/internal/logging"
	"github.com/example/signature-verify/internal/metrics"
	"github.com/example/signature-verify/internal/repository"
	"github.com/example/signature-verify/internal/signature"
	"github.com/example/signature-verify/internal/timing"
)

const (
	scoreCacheTTL  = time.Hour
	resultCacheTTL = 5 * time.Minute
)

// MatchResult is the outcome of a pairwise comparison. Match carries the
// decision label, ProcessingTime the seconds spent on decode and comparison.
type MatchResult struct {
	RequestID       string  `json:"request_id"`
	Match           string  `json:"match"`
	SimilarityScore float64 `json:"similarity_score"`
	ProcessingTime  float64 `json:"processing_time"`
}

type cachedMatch struct {
	RequestID  string    `json:"request_id"`
	UserID     string    `json:"user_id"`
	Score      float64   `json:"score"`
	Decision   string    `json:"decision"`
	Image1SHA1 string    `json:"image1_sha1"`
	Image2SHA1 string    `json:"image2_sha1"`
	PairSHA1   string    `json:"pair_sha1"`
	LatencyMS  float64   `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// MatchPair decodes both images, obtains a similarity score, and applies the
// decision threshold. Either decode failure or a model failure aborts the
// whole operation; a pairwise comparison has no partial result. Persistence
// and caching of the outcome are best effort and never fail a computed
// comparison.
func (uc *ProcessingUseCase) MatchPair(ctx context.Context, userID string, image1, image2 ImagePayload) (*MatchResult, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.match_pair", requestID)

	rec := timing.NewRecorder()
	stopTotal := rec.Start(timing.TotalKey)

	img1, err := imaging.Decode(image1.Data)
	if err != nil {
		wrapped := logging.NewImageOperationError("usecase.match_decode", requestID, image1.ID, err)
		opLogger.Warn("first image failed to decode", zap.Error(wrapped))
		return nil, wrapped
	}
	img2, err := imaging.Decode(image2.Data)
	if err != nil {
		wrapped := logging.NewImageOperationError("usecase.match_decode", requestID, image2.ID, err)
		opLogger.Warn("second image failed to decode", zap.Error(wrapped))
		return nil, wrapped
	}

	digest1 := hex.EncodeToString(imaging.Digest(img1))
	digest2 := hex.EncodeToString(imaging.Digest(img2))
	pairHash := pairDigest(digest1, digest2)
	scoreKey := fmt.Sprintf("match:score:%s", pairHash)

	var score float64
	scoreCached := false
	if raw, cacheErr := uc.withRedisGet(ctx, requestID, "cache.get.score", scoreKey); cacheErr == nil {
		if parsed, parseErr := strconv.ParseFloat(raw, 64); parseErr == nil {
			score = parsed
			scoreCached = true
		} else {
			opLogger.Warn("discarding malformed cached score", zap.Error(parseErr))
		}
	} else if !errors.Is(cacheErr, redis.Nil) {
		opLogger.Warn("failed to read score cache", zap.Error(cacheErr))
	}

	if !scoreCached {
		score, err = uc.gateway.Compare(ctx, img1, img2)
		if err != nil {
			wrapped := logging.NewOperationError("usecase.model_compare", requestID, err)
			opLogger.Error("model comparison failed", zap.Error(wrapped))
			return nil, wrapped
		}
	}

	decision := signature.DecisionNoMatch
	if score >= uc.threshold {
		decision = signature.DecisionMatch
	}
	elapsed := stopTotal()

	if !scoreCached {
		if cacheErr := uc.withRedisRetry(ctx, requestID, "cache.set.score", func() error {
			return uc.cache.Set(ctx, scoreKey, strconv.FormatFloat(score, 'f', -1, 64), scoreCacheTTL)
		}); cacheErr != nil {
			opLogger.Warn("failed to cache similarity score", zap.Error(cacheErr))
		}
	}

	log := &repository.MatchLog{
		RequestID:  requestID,
		UserID:     userID,
		Score:      score,
		Decision:   decision,
		Image1SHA1: digest1,
		Image2SHA1: digest2,
		PairSHA1:   pairHash,
		LatencyMS:  elapsed.Seconds() * 1000,
		CreatedAt:  time.Now().UTC(),
	}
	log.Details = fmt.Sprintf("decision:%s score:%f pair:%s", decision, score, pairHash)
	if saveErr := uc.repo.SaveLog(ctx, log); saveErr != nil {
		opLogger.Warn("failed to persist match log", zap.Error(saveErr))
	}

	cached := cachedMatch{
		RequestID:  log.RequestID,
		UserID:     log.UserID,
		Score:      log.Score,
		Decision:   log.Decision,
		Image1SHA1: log.Image1SHA1,
		Image2SHA1: log.Image2SHA1,
		PairSHA1:   log.PairSHA1,
		LatencyMS:  log.LatencyMS,
		CreatedAt:  log.CreatedAt,
	}
	if serialized, marshalErr := json.Marshal(cached); marshalErr == nil {
		if cacheErr := uc.withRedisRetry(ctx, requestID, "cache.set.result", func() error {
			return uc.cache.Set(ctx, resultCacheKey(requestID), string(serialized), resultCacheTTL)
		}); cacheErr != nil {
			opLogger.Warn("failed to cache match result", zap.Error(cacheErr))
		}
	} else {
		opLogger.Warn("failed to serialize match result", zap.Error(marshalErr))
	}

	metrics.IncMatch(decision)
	metrics.ObserveOperation("match", elapsed)
	opLogger.Info("match completed",
		zap.String("decision", decision),
		zap.Float64("score", score),
		zap.Bool("score_cached", scoreCached),
		zap.Duration("elapsed", elapsed),
	)

	return &MatchResult{
		RequestID:       requestID,
		Match:           decision,
		SimilarityScore: score,
		ProcessingTime:  rec.Seconds()[timing.TotalKey],
	}, nil
}

func resultCacheKey(requestID string) string {
	return fmt.Sprintf("match:result:%s", requestID)
}

func pairDigest(digest1, digest2 string) string {
	sum := sha1.Sum([]byte(digest1 + ":" + digest2))
	return hex.EncodeToString(sum[:])
}
