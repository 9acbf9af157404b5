// Argus - Cloud Audit Telemetry and Security Analytics
// Copyright 2026 Argus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/arguslabs/argus

package profiles

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/arguslabs/argus/internal/database"
	"github.com/arguslabs/argus/internal/models"
)

type fakeStore struct {
	events  []database.ProfileSourceEvent
	upserts map[string]upsert
}

type upsert struct {
	hours   models.IntList
	ips     models.StringList
	actions models.StringList
}

func (f *fakeStore) EventsForProfileBuild(_ context.Context, _ uuid.UUID, _ *uuid.UUID, _ time.Time) ([]database.ProfileSourceEvent, error) {
	return f.events, nil
}

func (f *fakeStore) UpsertAutoProfile(_ context.Context, _ uuid.UUID, entityID string, hours models.IntList, ips, actions models.StringList) error {
	if f.upserts == nil {
		f.upserts = make(map[string]upsert)
	}
	f.upserts[entityID] = upsert{hours: hours, ips: ips, actions: actions}
	return nil
}

func TestCumulativeTop(t *testing.T) {
	tests := []struct {
		name      string
		values    []string
		threshold float64
		want      []string
	}{
		{
			// A 60%, B 20%, C 20%: A alone misses 0.8, A+B reaches it.
			name:      "prefix stops at threshold",
			values:    []string{"A", "A", "A", "A", "A", "A", "B", "B", "C", "C"},
			threshold: 0.8,
			want:      []string{"A", "B"},
		},
		{
			name:      "single value",
			values:    []string{"only"},
			threshold: 1.0,
			want:      []string{"only"},
		},
		{
			name:      "low threshold takes top only",
			values:    []string{"A", "A", "B"},
			threshold: 0.5,
			want:      []string{"A"},
		},
		{
			name:      "threshold one takes all",
			values:    []string{"A", "A", "B", "C"},
			threshold: 1.0,
			want:      []string{"A", "B", "C"},
		},
		{
			name:      "empty input",
			values:    nil,
			threshold: 0.8,
			want:      []string{},
		},
		{
			name:      "ties rank lexicographically",
			values:    []string{"b", "a"},
			threshold: 1.0,
			want:      []string{"a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CumulativeTop(tt.values, tt.threshold)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CumulativeTop(%v, %v) = %v, want %v", tt.values, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestBuilderValidation(t *testing.T) {
	if _, err := NewBuilder(&fakeStore{}, 0, 30); err == nil {
		t.Error("threshold 0 should be rejected")
	}
	if _, err := NewBuilder(&fakeStore{}, 1.5, 30); err == nil {
		t.Error("threshold above 1 should be rejected")
	}
	if _, err := NewBuilder(&fakeStore{}, 0.8, 0); err == nil {
		t.Error("zero lookback should be rejected")
	}
	if _, err := NewBuilder(&fakeStore{}, 1.0, 1); err != nil {
		t.Errorf("boundary values should be accepted: %v", err)
	}
}

func srcEvent(identity, ip, action string, hour int) database.ProfileSourceEvent {
	return database.ProfileSourceEvent{
		EventTime:      time.Date(2026, 8, 24, hour, 0, 0, 0, time.UTC),
		ActorIdentity:  identity,
		ActorIPAddress: ip,
		ActionName:     action,
	}
}

func TestBuildDerivesAutoLists(t *testing.T) {
	store := &fakeStore{}
	// Six A, two B, two C for alice's actions: cumulative-top at 0.8 is [A, B].
	for i := 0; i < 6; i++ {
		store.events = append(store.events, srcEvent("alice", "10.0.0.1", "A", 14))
	}
	store.events = append(store.events,
		srcEvent("alice", "10.0.0.1", "B", 14),
		srcEvent("alice", "10.0.0.1", "B", 14),
		srcEvent("alice", "10.0.0.2", "C", 9),
		srcEvent("alice", "10.0.0.2", "C", 9),
	)

	b, err := NewBuilder(store, 0.8, 30)
	if err != nil {
		t.Fatal(err)
	}
	n, err := b.Build(context.Background(), uuid.New(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n != 1 {
		t.Fatalf("profiles written = %d, want 1", n)
	}

	up, ok := store.upserts["alice"]
	if !ok {
		t.Fatal("alice profile not upserted")
	}
	if !reflect.DeepEqual([]string(up.actions), []string{"A", "B"}) {
		t.Errorf("auto_common_actions = %v, want [A B]", up.actions)
	}
	if !reflect.DeepEqual([]int(up.hours), []int{14}) {
		t.Errorf("auto_common_hours = %v, want [14]", up.hours)
	}
	if !reflect.DeepEqual([]string(up.ips), []string{"10.0.0.1"}) {
		t.Errorf("auto_common_ips = %v, want [10.0.0.1]", up.ips)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	store := &fakeStore{events: []database.ProfileSourceEvent{
		srcEvent("bob", "10.0.0.1", "GetObject", 9),
		srcEvent("bob", "10.0.0.1", "GetObject", 9),
	}}
	b, err := NewBuilder(store, 0.8, 30)
	if err != nil {
		t.Fatal(err)
	}
	orgID := uuid.New()

	if _, err := b.Build(context.Background(), orgID, nil); err != nil {
		t.Fatal(err)
	}
	first := store.upserts["bob"]
	if _, err := b.Build(context.Background(), orgID, nil); err != nil {
		t.Fatal(err)
	}
	second := store.upserts["bob"]

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated build changed results: %+v vs %+v", first, second)
	}
}

func TestBuildDropsEmptyEntityIDs(t *testing.T) {
	store := &fakeStore{events: []database.ProfileSourceEvent{
		srcEvent("", "", "GetObject", 9),
		srcEvent("unknown", "", "GetObject", 9),
	}}
	b, err := NewBuilder(store, 0.8, 30)
	if err != nil {
		t.Fatal(err)
	}
	n, err := b.Build(context.Background(), uuid.New(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n != 0 {
		t.Errorf("rows with empty entity id should be dropped, wrote %d", n)
	}
}
