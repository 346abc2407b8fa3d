package usecase

import "context"

// MetricsSummary represents aggregated matching insights.
type MetricsSummary struct {
	TotalRequests    int64   `json:"total_requests"`
	MatchedRequests  int64   `json:"matched_requests"`
	MatchRate        float64 `json:"match_rate"`
	AverageScore     float64 `json:"average_score"`
	AverageLatencyMS float64 `json:"average_latency_ms"`
}

// GetMetricsSummary aggregates match metrics from persisted logs.
func (uc *ProcessingUseCase) GetMetricsSummary(ctx context.Context) (*MetricsSummary, error) {
	aggregation, err := uc.repo.AggregateMetrics(ctx)
	if err != nil {
		return nil, err
	}

	summary := &MetricsSummary{
		TotalRequests:    aggregation.TotalCount,
		MatchedRequests:  aggregation.MatchCount,
		AverageScore:     aggregation.AverageScore,
		AverageLatencyMS: aggregation.AverageLatencyMS,
	}

	if aggregation.TotalCount > 0 {
		summary.MatchRate = float64(aggregation.MatchCount) / float64(aggregation.TotalCount)
	}

	return summary, nil
}
