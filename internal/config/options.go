package config

import (
	"halo-cme-lab/internal/baseline"
	"halo-cme-lab/internal/classify"
	"halo-cme-lab/internal/detection"
	"halo-cme-lab/internal/domain"
	"halo-cme-lab/internal/scoring"
	"halo-cme-lab/internal/segment"
)

// BaselineOptions returns the baseline estimator options.
func (d *DetectionConfig) BaselineOptions() baseline.Options {
	return baseline.Options{
		Window:  d.RollingWindow,
		Epsilon: d.Epsilon,
		Daily:   d.DailyBaseline,
	}
}

// ScoringOptions returns the scoring engine options.
func (d *DetectionConfig) ScoringOptions() scoring.Options {
	weights := make([]scoring.ParameterWeight, len(d.Weights))
	copy(weights, d.Weights)
	return scoring.Options{
		Weights:      weights,
		ZCap:         d.ZCap,
		Percentile:   d.Percentile,
		MinThreshold: d.MinThreshold,
		GlobalBlend:  d.GlobalBlend,
	}
}

// ClassifyOptions returns the classifier options.
func (d *DetectionConfig) ClassifyOptions() classify.Options {
	bands := make([]classify.Band, len(d.StrengthBands))
	copy(bands, d.StrengthBands)
	return classify.Options{
		Bands:              bands,
		Fallback:           domain.Strength(d.FallbackStrength),
		ClusterEnabled:     d.ClusterDetection,
		ClusterMinDistance: d.ClusterMinDistance,
		ClusterMinPeaks:    d.ClusterMinPeaks,
	}
}

// Detector builds the per-window detector.
func (d *DetectionConfig) Detector() (*detection.Detector, error) {
	policy, err := segment.NewPolicy(d.ThresholdPolicy, segment.PolicyOptions{
		Percentile:        d.Percentile,
		MinThreshold:      d.MinThreshold,
		CorrectionTrigger: d.CorrectionTrigger,
		CorrectionFactor:  d.CorrectionFactor,
	})
	if err != nil {
		return nil, err
	}
	extractor := segment.NewExtractor(policy, segment.Options{
		NoiseFloor:      d.NoiseFloor,
		NoiseFloorRatio: d.NoiseFloorRatio,
		MinDuration:     d.MinDuration,
	})
	return detection.NewDetector(
		scoring.NewEngine(d.ScoringOptions()),
		extractor,
		classify.New(d.ClassifyOptions()),
		detection.Options{Margin: d.Margin, MergeGap: d.MergeGap},
	), nil
}
