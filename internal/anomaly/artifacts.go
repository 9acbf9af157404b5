// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

// Package anomaly scores per-entity feature rows against pre-trained
// artifacts: a standard scaler and an isolation forest, both exported to
// JSON by the training job. Artifacts are loaded once at startup and are
// read-only afterwards. When either file is missing the scorer degrades to
// no-signal instead of failing the pipeline.
package anomaly

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
)

// Scaler is a standard scaler: (x - mean) / scale per feature.
type Scaler struct {
	Means  []float64 `json:"means"`
	Scales []float64 `json:"scales"`
}

// Transform scales one feature row in place order.
func (s *Scaler) Transform(features []float64) ([]float64, error) {
	if len(features) != len(s.Means) || len(features) != len(s.Scales) {
		return nil, fmt.Errorf("feature width %d does not match scaler width %d", len(features), len(s.Means))
	}
	out := make([]float64, len(features))
	for i, x := range features {
		scale := s.Scales[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (x - s.Means[i]) / scale
	}
	return out, nil
}

// Tree is one isolation tree in array form. Node i branches to
// ChildrenLeft[i] / ChildrenRight[i] on Features[i] vs Thresholds[i];
// a child of -1 marks a leaf. NodeSamples carries the training sample count
// per node for the path-length correction.
type Tree struct {
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
	Features      []int     `json:"features"`
	Thresholds    []float64 `json:"thresholds"`
	NodeSamples   []int     `json:"node_samples"`
}

// Forest is an isolation forest. Offset is the trained decision threshold:
// rows whose score falls below it are anomalous.
type Forest struct {
	Trees      []Tree  `json:"trees"`
	NumFeatures int    `json:"n_features"`
	MaxSamples int     `json:"max_samples"`
	Offset     float64 `json:"offset"`
}

func (f *Forest) validate() error {
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	if f.MaxSamples < 2 {
		return fmt.Errorf("forest max_samples %d out of range", f.MaxSamples)
	}
	for i, t := range f.Trees {
		n := len(t.ChildrenLeft)
		if len(t.ChildrenRight) != n || len(t.Features) != n ||
			len(t.Thresholds) != n || len(t.NodeSamples) != n {
			return fmt.Errorf("tree %d has inconsistent node arrays", i)
		}
		if n == 0 {
			return fmt.Errorf("tree %d is empty", i)
		}
	}
	return nil
}

// LoadScaler reads a scaler artifact from path.
func LoadScaler(path string) (*Scaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler: %w", err)
	}
	var s Scaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scaler: %w", err)
	}
	if len(s.Means) == 0 || len(s.Means) != len(s.Scales) {
		return nil, fmt.Errorf("scaler arrays inconsistent: %d means, %d scales", len(s.Means), len(s.Scales))
	}
	return &s, nil
}

// LoadForest reads a forest artifact from path.
func LoadForest(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}
