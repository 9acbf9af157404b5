// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package anomaly

import (
	"fmt"
	"math"

	"github.com/arguslabs/argus/internal/logging"
)

// Scorer applies the scaler and forest to feature rows. A Scorer with nil
// artifacts is valid and reports Enabled() == false; every Predict on it
// returns no-signal.
type Scorer struct {
	scaler *Scaler
	forest *Forest
}

// NewScorer loads both artifacts. Missing or corrupt artifacts are logged
// once at WARN and produce a disabled scorer; the pipeline keeps running
// with the anomaly layer off.
func NewScorer(modelPath, scalerPath string) *Scorer {
	if modelPath == "" || scalerPath == "" {
		logging.Warn().Msg("anomaly artifacts not configured, anomaly layer disabled")
		return &Scorer{}
	}

	scaler, err := LoadScaler(scalerPath)
	if err != nil {
		logging.Warn().Err(err).Str("path", scalerPath).
			Msg("scaler unavailable, anomaly layer disabled")
		return &Scorer{}
	}
	forest, err := LoadForest(modelPath)
	if err != nil {
		logging.Warn().Err(err).Str("path", modelPath).
			Msg("model unavailable, anomaly layer disabled")
		return &Scorer{}
	}

	logging.Info().
		Int("trees", len(forest.Trees)).
		Int("features", len(scaler.Means)).
		Msg("anomaly artifacts loaded")
	return &Scorer{scaler: scaler, forest: forest}
}

// NewScorerFromArtifacts builds a scorer from in-memory artifacts. Tests use
// this to avoid filesystem fixtures.
func NewScorerFromArtifacts(scaler *Scaler, forest *Forest) *Scorer {
	return &Scorer{scaler: scaler, forest: forest}
}

// Enabled reports whether both artifacts loaded.
func (s *Scorer) Enabled() bool {
	return s.scaler != nil && s.forest != nil
}

// Predict reports whether the feature row is anomalous. Disabled scorers
// and inference failures return (false, err) and the caller treats the row
// as no-signal.
func (s *Scorer) Predict(features []float64) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	scaled, err := s.scaler.Transform(features)
	if err != nil {
		return false, err
	}
	score, err := s.forest.Score(scaled)
	if err != nil {
		return false, err
	}
	return score < s.forest.Offset, nil
}

// Score computes the isolation score of one scaled row: the negated
// exponential of the average path length normalized by the expected path
// length for MaxSamples. Shorter paths isolate sooner and score lower.
func (f *Forest) Score(row []float64) (float64, error) {
	var total float64
	for i := range f.Trees {
		depth, err := f.Trees[i].pathLength(row)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		total += depth
	}
	mean := total / float64(len(f.Trees))
	return -math.Exp2(-mean / averagePathLength(f.MaxSamples)), nil
}

func (t *Tree) pathLength(row []float64) (float64, error) {
	node := 0
	depth := 0.0
	for t.ChildrenLeft[node] != -1 {
		feat := t.Features[node]
		if feat < 0 || feat >= len(row) {
			return 0, fmt.Errorf("node %d references feature %d beyond row width %d", node, feat, len(row))
		}
		if row[feat] <= t.Thresholds[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
		if node < 0 || node >= len(t.ChildrenLeft) {
			return 0, fmt.Errorf("child index %d out of range", node)
		}
		depth++
	}
	// Leaves holding more than one sample get the expected remaining depth.
	return depth + averagePathLength(t.NodeSamples[node]), nil
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// BST search over n samples.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+0.5772156649) - 2*(fn-1)/fn
	}
}
