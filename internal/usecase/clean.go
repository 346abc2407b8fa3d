package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/signature-verify/internal/imaging"
	"github.com/example/signature-verify/internal/logging"
	"github.com/example/signature-verify/internal/metrics"
	"github.com/example/signature-verify/internal/signature"
	"github.com/example/signature-verify/internal/timing"
)

// ImagePayload is one encoded image in a batch, identified by the caller.
type ImagePayload struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}

// CleanFailure describes one item that could not be cleaned.
type CleanFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// CleanBatchResult is the outcome of a batch cleaning request. CleanedImages
// holds the items that succeeded in input order; Failures lists the items
// that did not. ProcessingTimes has an entry per attempted item plus the
// whole batch under "total".
type CleanBatchResult struct {
	RequestID       string             `json:"request_id"`
	CleanedImages   []ImagePayload     `json:"cleaned_images"`
	Failures        []CleanFailure     `json:"failures,omitempty"`
	ProcessingTimes map[string]float64 `json:"processing_times"`
}

// ProcessingError reports that every item of a non-empty batch failed.
type ProcessingError struct {
	Attempted int
	Failures  []CleanFailure
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("all %d images failed processing", e.Attempted)
}

// CleanBatch runs every item of the batch through decode, the cleaning
// model, and re-encode. Items are processed concurrently up to the
// configured parallelism. One item's failure never aborts the others, and
// the output preserves input order regardless of completion order.
func (uc *ProcessingUseCase) CleanBatch(ctx context.Context, items []ImagePayload) (*CleanBatchResult, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.clean_batch", requestID)

	rec := timing.NewRecorder()
	stopTotal := rec.Start(timing.TotalKey)

	cleaned := make([]string, len(items))
	itemErrs := make([]error, len(items))

	sem := make(chan struct{}, uc.maxParallel)
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				itemErrs[idx] = ctx.Err()
				return
			}
			item := items[idx]
			itemErrs[idx] = rec.Observe(item.ID, func() error {
				img, err := imaging.Decode(item.Data)
				if err != nil {
					return err
				}
				out, err := uc.gateway.Clean(ctx, img)
				if err != nil {
					return err
				}
				encoded, err := imaging.Encode(out)
				if err != nil {
					return err
				}
				cleaned[idx] = encoded
				return nil
			})
		}(i)
	}
	wg.Wait()
	totalElapsed := stopTotal()

	if err := ctx.Err(); err != nil {
		return nil, logging.NewOperationError("usecase.clean_batch", requestID, err)
	}

	result := &CleanBatchResult{
		RequestID:     requestID,
		CleanedImages: make([]ImagePayload, 0, len(items)),
	}
	for i, item := range items {
		if err := itemErrs[i]; err != nil {
			metrics.IncCleanItem(classifyCleanError(err))
			logging.WithImage(opLogger, item.ID).Warn("image cleaning failed", zap.Error(err))
			result.Failures = append(result.Failures, CleanFailure{ID: item.ID, Error: err.Error()})
			continue
		}
		metrics.IncCleanItem("success")
		result.CleanedImages = append(result.CleanedImages, ImagePayload{ID: item.ID, Data: cleaned[i]})
	}
	result.ProcessingTimes = rec.Seconds()

	metrics.ObserveOperation("clean", totalElapsed)
	opLogger.Info("batch cleaning finished",
		zap.Int("items", len(items)),
		zap.Int("failed", len(result.Failures)),
		zap.Duration("elapsed", totalElapsed),
	)

	if len(items) > 0 && len(result.Failures) == len(items) {
		return nil, &ProcessingError{Attempted: len(items), Failures: result.Failures}
	}
	return result, nil
}

func classifyCleanError(err error) string {
	var decodeErr *imaging.DecodeError
	if errors.As(err, &decodeErr) {
		return "decode_error"
	}
	var invocationErr *signature.InvocationError
	if errors.As(err, &invocationErr) {
		return "model_error"
	}
	return "error"
}
