// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package anomaly

import (
	"os"
	"path/filepath"
	"testing"
)

// singleSplitForest isolates feature 0 above 0.5 at depth 1.
func singleSplitForest() *Forest {
	return &Forest{
		Trees: []Tree{{
			ChildrenLeft:  []int{1, -1, -1},
			ChildrenRight: []int{2, -1, -1},
			Features:      []int{0, -2, -2},
			Thresholds:    []float64{0.5, 0, 0},
			NodeSamples:   []int{10, 9, 1},
		}},
		NumFeatures: 1,
		MaxSamples:  10,
		Offset:      -0.55,
	}
}

func identityScaler(width int) *Scaler {
	means := make([]float64, width)
	scales := make([]float64, width)
	for i := range scales {
		scales[i] = 1
	}
	return &Scaler{Means: means, Scales: scales}
}

func TestScalerTransform(t *testing.T) {
	s := &Scaler{Means: []float64{10, 0}, Scales: []float64{2, 0}}
	out, err := s.Transform([]float64{14, 3})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out[0] != 2 {
		t.Errorf("out[0] = %v, want 2", out[0])
	}
	// Zero scale treated as 1 to avoid division blowup.
	if out[1] != 3 {
		t.Errorf("out[1] = %v, want 3", out[1])
	}

	if _, err := s.Transform([]float64{1}); err == nil {
		t.Error("width mismatch should error")
	}
}

func TestForestIsolatesOutlier(t *testing.T) {
	scorer := NewScorerFromArtifacts(identityScaler(1), singleSplitForest())

	// The right leaf holds one sample: isolated at depth 1, low score.
	anomalous, err := scorer.Predict([]float64{0.9})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if !anomalous {
		t.Error("isolated point should be anomalous")
	}

	// The left leaf holds nine samples: long expected path, high score.
	anomalous, err = scorer.Predict([]float64{0.1})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if anomalous {
		t.Error("dense-region point should not be anomalous")
	}
}

func TestDisabledScorerIsNoSignal(t *testing.T) {
	scorer := NewScorer("", "")
	if scorer.Enabled() {
		t.Fatal("scorer without artifacts should be disabled")
	}
	anomalous, err := scorer.Predict([]float64{100})
	if err != nil || anomalous {
		t.Errorf("disabled scorer should return no-signal, got (%v, %v)", anomalous, err)
	}
}

func TestMissingArtifactsDisableScorer(t *testing.T) {
	scorer := NewScorer("/nonexistent/model.json", "/nonexistent/scaler.json")
	if scorer.Enabled() {
		t.Error("missing artifacts should disable the scorer")
	}
}

func TestLoadArtifactsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	scalerPath := filepath.Join(dir, "scaler.json")
	modelPath := filepath.Join(dir, "model.json")

	scalerJSON := `{"means":[0.0],"scales":[1.0]}`
	modelJSON := `{
		"n_features": 1,
		"max_samples": 10,
		"offset": -0.55,
		"trees": [{
			"children_left":  [1, -1, -1],
			"children_right": [2, -1, -1],
			"features":       [0, -2, -2],
			"thresholds":     [0.5, 0, 0],
			"node_samples":   [10, 9, 1]
		}]
	}`
	if err := os.WriteFile(scalerPath, []byte(scalerJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(modelPath, []byte(modelJSON), 0o600); err != nil {
		t.Fatal(err)
	}

	scorer := NewScorer(modelPath, scalerPath)
	if !scorer.Enabled() {
		t.Fatal("scorer should load from files")
	}
	anomalous, err := scorer.Predict([]float64{0.9})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if !anomalous {
		t.Error("expected anomaly from loaded artifacts")
	}
}

func TestLoadForestRejectsInconsistentTrees(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.json")
	bad := `{"n_features":1,"max_samples":10,"offset":0,
		"trees":[{"children_left":[1,-1],"children_right":[2],"features":[0],"thresholds":[0.5],"node_samples":[10]}]}`
	if err := os.WriteFile(modelPath, []byte(bad), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadForest(modelPath); err == nil {
		t.Error("inconsistent node arrays should be rejected")
	}
}
