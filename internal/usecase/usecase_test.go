package usecase

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/signature-verify/internal/imaging"
	"github.com/example/signature-verify/internal/repository"
)

type stubRepository struct {
	savedLogs []*repository.MatchLog
	saveErr   error

	findLog   *repository.MatchLog
	findErr   error
	findCalls int

	duplicates       []*repository.MatchLog
	duplicatesErr    error
	duplicatesHash   string
	duplicatesExcl   string
	aggregation      *repository.MetricsAggregation
	aggregationErr   error
	aggregationCalls int
}

func (s *stubRepository) SaveLog(ctx context.Context, log *repository.MatchLog) error {
	s.savedLogs = append(s.savedLogs, log)
	return s.saveErr
}

func (s *stubRepository) FindByRequestIDAndUser(ctx context.Context, requestID, userID string) (*repository.MatchLog, error) {
	s.findCalls++
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.findLog != nil {
		return s.findLog, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubRepository) FindDuplicatesByPairHash(ctx context.Context, userID, pairHash, excludeRequestID string) ([]*repository.MatchLog, error) {
	s.duplicatesHash = pairHash
	s.duplicatesExcl = excludeRequestID
	if s.duplicatesErr != nil {
		return nil, s.duplicatesErr
	}
	return s.duplicates, nil
}

func (s *stubRepository) AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error) {
	s.aggregationCalls++
	if s.aggregationErr != nil {
		return nil, s.aggregationErr
	}
	if s.aggregation != nil {
		return s.aggregation, nil
	}
	return &repository.MetricsAggregation{}, nil
}

type stubCache struct {
	setErrs   []error
	getErrs   []error
	getValues []string
	setKeys   []string
	getKeys   []string
}

func (s *stubCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	s.setKeys = append(s.setKeys, key)
	if len(s.setErrs) == 0 {
		return nil
	}
	err := s.setErrs[0]
	s.setErrs = s.setErrs[1:]
	return err
}

func (s *stubCache) Get(ctx context.Context, key string) (string, error) {
	s.getKeys = append(s.getKeys, key)
	var value string
	if len(s.getValues) > 0 {
		value = s.getValues[0]
		s.getValues = s.getValues[1:]
	}
	var err error
	if len(s.getErrs) > 0 {
		err = s.getErrs[0]
		s.getErrs = s.getErrs[1:]
	}
	return value, err
}

// stubGateway must be safe for concurrent use; batch cleaning invokes it
// from multiple goroutines.
type stubGateway struct {
	mu           sync.Mutex
	cleanErr     error
	cleanCalls   int
	score        float64
	compareErr   error
	compareCalls int
}

func (s *stubGateway) Clean(ctx context.Context, img *imaging.Image) (*imaging.Image, error) {
	s.mu.Lock()
	s.cleanCalls++
	err := s.cleanErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (s *stubGateway) Compare(ctx context.Context, a, b *imaging.Image) (float64, error) {
	s.mu.Lock()
	s.compareCalls++
	score, err := s.score, s.compareErr
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return score, nil
}

func (s *stubGateway) calls() (clean, compare int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanCalls, s.compareCalls
}

func newTestUseCase(repo *stubRepository, cache *stubCache, gateway *stubGateway) *ProcessingUseCase {
	return NewProcessingUseCase(repo, cache, gateway, zap.NewNop(), 0.6, 4)
}

func buildDataURI(t *testing.T, seed uint8) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			img.Set(x, y, color.RGBA{R: uint8(int(seed) + x), G: uint8(y * 20), B: seed, A: 255})
		}
	}
	encoded, err := imaging.Encode(&imaging.Image{Pixels: img, Format: "png"})
	if err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return encoded
}
