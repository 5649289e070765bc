package ranking

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/confidence"
	"github.com/kailas-cloud/askdex/internal/domain/match"
	"github.com/kailas-cloud/askdex/internal/domain/partition"
	"github.com/kailas-cloud/askdex/internal/domain/ranked"
)

const eps = 1e-9

var defaultWeights = partition.Weights{
	partition.FAQ:      1.2,
	partition.Glossary: 1.0,
	partition.Concept:  0.9,
	partition.Textbook: 0.8,
}

var unitWeights = partition.Weights{
	partition.FAQ:      1,
	partition.Glossary: 1,
	partition.Concept:  1,
	partition.Textbook: 1,
}

func hit(id string, score float64) match.Hit {
	return match.Hit{ID: id, Score: score}
}

func ids(ms []match.Match) []string {
	out := make([]string, len(ms))
	for i := range ms {
		out[i] = ms[i].ID()
	}
	return out
}

func mustAggregate(t *testing.T, hits []PartitionHits, w partition.Weights) ranked.Set {
	t.Helper()
	set, err := Aggregate(hits, w)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	return set
}

// --- Aggregate ---

func TestAggregate_WeightedOrderAndLevel(t *testing.T) {
	weights := partition.Weights{partition.FAQ: 1.2, partition.Concept: 0.9, partition.Glossary: 1.0}
	set := mustAggregate(t, []PartitionHits{
		{Partition: partition.FAQ, Hits: []match.Hit{hit("id1", 0.85)}},
		{Partition: partition.Concept, Hits: []match.Hit{hit("id2", 0.83)}},
		{Partition: partition.Glossary, Hits: []match.Hit{hit("id3", 0.5)}},
	}, weights)

	if got := ids(set.All()); !reflect.DeepEqual(got, []string{"id1", "id2", "id3"}) {
		t.Fatalf("unexpected order %v", got)
	}

	want := []float64{1.02, 0.747, 0.5}
	for i, w := range want {
		m := set.At(i)
		if math.Abs(m.WeightedScore()-w) > eps {
			t.Errorf("weighted[%d] = %f, want %f", i, m.WeightedScore(), w)
		}
	}

	v := Classify(set, DefaultTuning())
	if v.Level != confidence.High {
		t.Errorf("expected high (weighted best 1.02), got %s", v.Level)
	}
	if math.Abs(v.Score-1.02) > eps {
		t.Errorf("spread is wide, expected no bonus: score %f", v.Score)
	}
}

func TestAggregate_Empty(t *testing.T) {
	set := mustAggregate(t, []PartitionHits{
		{Partition: partition.FAQ},
		{Partition: partition.Glossary, Hits: []match.Hit{}},
	}, defaultWeights)

	if !set.IsEmpty() {
		t.Fatalf("expected empty set, got %d", set.Len())
	}
	if v := Classify(set, DefaultTuning()); v != confidence.NoneVerdict() {
		t.Errorf("expected none verdict, got %+v", v)
	}
	if sel := Select(set, 3, DefaultTuning()); len(sel) != 0 {
		t.Errorf("expected empty selection, got %v", ids(sel))
	}
}

func TestAggregate_NoPartitions(t *testing.T) {
	set := mustAggregate(t, nil, partition.Weights{})
	if !set.IsEmpty() {
		t.Fatal("expected empty set")
	}
}

func TestAggregate_StableTieBreakByPartitionOrder(t *testing.T) {
	set := mustAggregate(t, []PartitionHits{
		{Partition: partition.Glossary, Hits: []match.Hit{hit("g", 0.5)}},
		{Partition: partition.FAQ, Hits: []match.Hit{hit("f", 0.5)}},
	}, unitWeights)

	if got := ids(set.All()); !reflect.DeepEqual(got, []string{"g", "f"}) {
		t.Errorf("glossary enumerated first must rank first on a tie, got %v", got)
	}

	// Reversing enumeration order reverses the tie.
	set = mustAggregate(t, []PartitionHits{
		{Partition: partition.FAQ, Hits: []match.Hit{hit("f", 0.5)}},
		{Partition: partition.Glossary, Hits: []match.Hit{hit("g", 0.5)}},
	}, unitWeights)
	if got := ids(set.All()); !reflect.DeepEqual(got, []string{"f", "g"}) {
		t.Errorf("faq enumerated first must rank first on a tie, got %v", got)
	}
}

func TestAggregate_StableWithinPartition(t *testing.T) {
	set := mustAggregate(t, []PartitionHits{
		{Partition: partition.Textbook, Hits: []match.Hit{hit("t1", 0.4), hit("t2", 0.4), hit("t3", 0.4)}},
	}, defaultWeights)

	if got := ids(set.All()); !reflect.DeepEqual(got, []string{"t1", "t2", "t3"}) {
		t.Errorf("search order must survive equal scores, got %v", got)
	}
}

func TestAggregate_MissingWeight(t *testing.T) {
	_, err := Aggregate([]PartitionHits{
		{Partition: partition.FAQ, Hits: []match.Hit{hit("a", 0.9)}},
		{Partition: partition.Concept, Hits: []match.Hit{hit("b", 0.9)}},
	}, partition.Weights{partition.FAQ: 1.2})

	if !errors.Is(err, domain.ErrMissingWeight) {
		t.Fatalf("expected ErrMissingWeight, got %v", err)
	}
}

func TestAggregate_MissingWeightForEmptyPartition(t *testing.T) {
	_, err := Aggregate([]PartitionHits{
		{Partition: partition.FAQ, Hits: []match.Hit{hit("a", 0.9)}},
		{Partition: partition.Textbook},
	}, partition.Weights{partition.FAQ: 1.2})

	if !errors.Is(err, domain.ErrMissingWeight) {
		t.Fatalf("expected ErrMissingWeight, got %v", err)
	}
}

func TestAggregate_UnknownPartition(t *testing.T) {
	_, err := Aggregate([]PartitionHits{
		{Partition: partition.Partition("chunk"), Hits: []match.Hit{hit("a", 0.9)}},
	}, partition.Weights{"chunk": 1})

	if !errors.Is(err, domain.ErrUnknownPartition) {
		t.Fatalf("expected ErrUnknownPartition, got %v", err)
	}
}

func TestAggregate_MalformedScoresSinkToBottom(t *testing.T) {
	set := mustAggregate(t, []PartitionHits{
		{Partition: partition.FAQ, Hits: []match.Hit{hit("nan", math.NaN()), hit("neg", -2)}},
		{Partition: partition.Glossary, Hits: []match.Hit{hit("ok", 0.3), hit("big", 7)}},
	}, unitWeights)

	if got := ids(set.All()); !reflect.DeepEqual(got, []string{"big", "ok", "nan", "neg"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if m := set.At(0); m.WeightedScore() != 1 {
		t.Errorf("out-of-range score must clamp to 1, got %f", m.WeightedScore())
	}

	v := Classify(set, DefaultTuning())
	if math.IsNaN(v.Score) {
		t.Fatal("NaN leaked into the verdict")
	}
}

func TestAggregate_OrderingAndWeightInvariants(t *testing.T) {
	raw := []PartitionHits{
		{Partition: partition.FAQ, Hits: []match.Hit{hit("f1", 0.61), hit("f2", 0.33), hit("f3", 0.12)}},
		{Partition: partition.Glossary, Hits: []match.Hit{hit("g1", 0.77), hit("g2", 0.74)}},
		{Partition: partition.Concept, Hits: []match.Hit{hit("c1", 0.91), hit("c2", 0.2)}},
		{Partition: partition.Textbook, Hits: []match.Hit{hit("t1", 0.99), hit("t2", 0.88)}},
	}
	set := mustAggregate(t, raw, defaultWeights)

	if set.Len() != 9 {
		t.Fatalf("expected 9 matches, got %d", set.Len())
	}
	for i := 1; i < set.Len(); i++ {
		prev, cur := set.At(i-1), set.At(i)
		if prev.WeightedScore() < cur.WeightedScore() {
			t.Errorf("order violated at %d: %f < %f", i, prev.WeightedScore(), cur.WeightedScore())
		}
	}
	for i := 0; i < set.Len(); i++ {
		m := set.At(i)
		if m.WeightedScore() != m.RawScore()*defaultWeights[m.Partition()] {
			t.Errorf("%s: weighted %f != raw %f * weight", m.ID(), m.WeightedScore(), m.RawScore())
		}
	}
}

func TestPipeline_Deterministic(t *testing.T) {
	raw := []PartitionHits{
		{Partition: partition.FAQ, Hits: []match.Hit{hit("f1", 0.7), hit("f2", 0.7)}},
		{Partition: partition.Glossary, Hits: []match.Hit{hit("g1", 0.84), hit("g2", 0.84)}},
		{Partition: partition.Concept, Hits: []match.Hit{hit("c1", 0.93)}},
	}

	type snapshot struct {
		order    []string
		verdict  confidence.Verdict
		selected []string
	}
	run := func() snapshot {
		set := mustAggregate(t, raw, defaultWeights)
		return snapshot{
			order:    ids(set.All()),
			verdict:  Classify(set, DefaultTuning()),
			selected: ids(Select(set, 3, DefaultTuning())),
		}
	}

	first := run()
	for i := 0; i < 20; i++ {
		if got := run(); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

// --- Classify ---

func single(score float64) ranked.Set {
	return ranked.FromOrdered([]match.Match{match.New(partition.FAQ, hit("x", score), 1)})
}

func TestClassify_Thresholds(t *testing.T) {
	tests := []struct {
		best float64
		want confidence.Level
	}{
		{1.0, confidence.High},
		{0.8, confidence.High},
		{0.7999, confidence.Medium},
		{0.6, confidence.Medium},
		{0.5999, confidence.Low},
		{0.4, confidence.Low},
		{0.3999, confidence.VeryLow},
		{0, confidence.VeryLow},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%g", tc.best), func(t *testing.T) {
			v := Classify(single(tc.best), DefaultTuning())
			if v.Level != tc.want {
				t.Errorf("best %g: level %s, want %s", tc.best, v.Level, tc.want)
			}
			if v.Score != tc.best {
				t.Errorf("single result must not get a bonus: %f", v.Score)
			}
		})
	}
}

func TestClassify_TightClusterBonus(t *testing.T) {
	set := mustAggregate(t, []PartitionHits{
		{Partition: partition.FAQ, Hits: []match.Hit{hit("a", 0.81)}},
		{Partition: partition.Glossary, Hits: []match.Hit{hit("b", 0.80)}},
		{Partition: partition.Concept, Hits: []match.Hit{hit("c", 0.79)}},
	}, unitWeights)

	v := Classify(set, DefaultTuning())
	if math.Abs(v.Score-0.86) > eps {
		t.Errorf("expected score 0.86, got %f", v.Score)
	}
	if v.Level != confidence.High {
		t.Errorf("bonus must not change the level, got %s", v.Level)
	}
}

func TestClassify_BonusDoesNotPromoteLevel(t *testing.T) {
	set := mustAggregate(t, []PartitionHits{
		{Partition: partition.FAQ, Hits: []match.Hit{hit("a", 0.76), hit("b", 0.75)}},
	}, unitWeights)

	v := Classify(set, DefaultTuning())
	if v.Level != confidence.Medium {
		t.Errorf("expected medium from best 0.76, got %s", v.Level)
	}
	if math.Abs(v.Score-0.81) > eps {
		t.Errorf("expected adjusted score 0.81, got %f", v.Score)
	}
}

func TestClassify_TwoResultsWideSpread(t *testing.T) {
	set := mustAggregate(t, []PartitionHits{
		{Partition: partition.FAQ, Hits: []match.Hit{hit("a", 0.9), hit("b", 0.6)}},
	}, unitWeights)

	v := Classify(set, DefaultTuning())
	if v.Score != 0.9 {
		t.Errorf("std-dev 0.15 must not earn a bonus, got %f", v.Score)
	}
}

func TestClassify_SpreadUsesOnlyWindow(t *testing.T) {
	// Fourth score is far away but outside the 3-wide window.
	set := mustAggregate(t, []PartitionHits{
		{Partition: partition.FAQ, Hits: []match.Hit{hit("a", 0.5), hit("b", 0.5), hit("c", 0.5), hit("d", 0.0)}},
	}, unitWeights)

	v := Classify(set, DefaultTuning())
	if math.Abs(v.Score-0.55) > eps {
		t.Errorf("expected bonus from tight top three, got %f", v.Score)
	}
	if v.Level != confidence.Low {
		t.Errorf("expected low, got %s", v.Level)
	}
}

func TestClassify_CustomTuning(t *testing.T) {
	tun := DefaultTuning()
	tun.HighThreshold = 0.95
	tun.ClusterBonus = 0.2

	set := mustAggregate(t, []PartitionHits{
		{Partition: partition.FAQ, Hits: []match.Hit{hit("a", 0.9), hit("b", 0.89)}},
	}, unitWeights)

	v := Classify(set, tun)
	if v.Level != confidence.Medium {
		t.Errorf("expected medium under raised high threshold, got %s", v.Level)
	}
	if math.Abs(v.Score-1.1) > eps {
		t.Errorf("expected 0.9 + 0.2, got %f", v.Score)
	}
}

func TestClassify_Monotonic(t *testing.T) {
	tail := []match.Hit{hit("t1", 0.35), hit("t2", 0.2)}
	prev := -1
	for i := 0; i <= 100; i++ {
		best := float64(i) / 100
		set := mustAggregate(t, []PartitionHits{
			{Partition: partition.FAQ, Hits: []match.Hit{hit("best", best)}},
			{Partition: partition.Glossary, Hits: tail},
		}, unitWeights)

		// Only consider cases where "best" stays on top so it is the varying best score.
		if b, _ := set.Best(); b.ID() != "best" {
			continue
		}
		rank := Classify(set, DefaultTuning()).Level.Rank()
		if rank < prev {
			t.Fatalf("level decreased at best=%g: %d < %d", best, rank, prev)
		}
		prev = rank
	}
}

// --- Select ---

func TestSelect_CapThenBackfill(t *testing.T) {
	var aHits []match.Hit
	for i := 0; i < 10; i++ {
		aHits = append(aHits, hit(fmt.Sprintf("a%d", i), 0.9))
	}
	set := mustAggregate(t, []PartitionHits{
		{Partition: partition.FAQ, Hits: aHits},
		{Partition: partition.Glossary, Hits: []match.Hit{hit("b0", 0.85)}},
	}, unitWeights)

	got := ids(Select(set, 3, DefaultTuning()))
	if !reflect.DeepEqual(got, []string{"a0", "a1", "b0"}) {
		t.Errorf("expected [a0 a1 b0], got %v", got)
	}
}

func TestSelect_BackfillIgnoresCapAndThreshold(t *testing.T) {
	set := mustAggregate(t, []PartitionHits{
		{Partition: partition.FAQ, Hits: []match.Hit{hit("a0", 0.9), hit("a1", 0.9), hit("a2", 0.9)}},
		{Partition: partition.Glossary, Hits: []match.Hit{hit("b0", 0.3)}},
	}, unitWeights)

	got := ids(Select(set, 4, DefaultTuning()))
	if !reflect.DeepEqual(got, []string{"a0", "a1", "a2", "b0"}) {
		t.Errorf("expected capped faq then backfill in score order, got %v", got)
	}

	got = ids(Select(set, 3, DefaultTuning()))
	if !reflect.DeepEqual(got, []string{"a0", "a1", "a2"}) {
		t.Errorf("backfill must take the next best regardless of cap, got %v", got)
	}
}

func TestSelect_DiversityPicksSkipCappedPartition(t *testing.T) {
	set := mustAggregate(t, []PartitionHits{
		{Partition: partition.FAQ, Hits: []match.Hit{hit("f0", 0.9), hit("f1", 0.89), hit("f2", 0.88)}},
		{Partition: partition.Concept, Hits: []match.Hit{hit("c0", 0.87)}},
	}, unitWeights)

	got := ids(Select(set, 3, DefaultTuning()))
	if !reflect.DeepEqual(got, []string{"f0", "f1", "c0"}) {
		t.Errorf("expected [f0 f1 c0], got %v", got)
	}
}

func TestSelect_OutputIsInsertionOrder(t *testing.T) {
	set := mustAggregate(t, []PartitionHits{
		{Partition: partition.FAQ, Hits: []match.Hit{hit("f0", 1.0), hit("f1", 0.95), hit("f2", 0.9)}},
		{Partition: partition.Glossary, Hits: []match.Hit{hit("g0", 0.5)}},
	}, unitWeights)

	// f2 is capped out of the diversity pass; g0 is below threshold; backfill adds f2 then g0.
	got := ids(Select(set, 4, DefaultTuning()))
	if !reflect.DeepEqual(got, []string{"f0", "f1", "f2", "g0"}) {
		t.Errorf("unexpected selection %v", got)
	}
}

func TestSelect_BestAlwaysIncluded(t *testing.T) {
	set := mustAggregate(t, []PartitionHits{
		{Partition: partition.Textbook, Hits: []match.Hit{hit("t0", 0.2), hit("t1", 0.1)}},
		{Partition: partition.Concept, Hits: []match.Hit{hit("c0", 0.15)}},
	}, defaultWeights)

	best, _ := set.Best()
	for k := 1; k <= 5; k++ {
		sel := Select(set, k, DefaultTuning())
		if len(sel) == 0 || sel[0].ID() != best.ID() || sel[0].Partition() != best.Partition() {
			t.Errorf("k=%d: best match missing from %v", k, ids(sel))
		}
		if want := min(k, set.Len()); len(sel) != want {
			t.Errorf("k=%d: expected %d items, got %d", k, want, len(sel))
		}
	}
}

func TestSelect_NoDuplicates(t *testing.T) {
	// Same identifier in two partitions is two distinct matches.
	set := mustAggregate(t, []PartitionHits{
		{Partition: partition.FAQ, Hits: []match.Hit{hit("x", 0.9)}},
		{Partition: partition.Glossary, Hits: []match.Hit{hit("x", 0.9)}},
	}, unitWeights)

	sel := Select(set, 5, DefaultTuning())
	if len(sel) != 2 {
		t.Fatalf("expected both matches once, got %d", len(sel))
	}
	if sel[0].Partition() == sel[1].Partition() {
		t.Error("expected one match per partition")
	}
}

func TestSelect_ZeroMax(t *testing.T) {
	set := single(0.9)
	if got := Select(set, 0, DefaultTuning()); len(got) != 0 {
		t.Errorf("expected empty selection for maxResults=0, got %v", ids(got))
	}
}

func TestSelect_CustomCap(t *testing.T) {
	tun := DefaultTuning()
	tun.PartitionCap = 1

	set := mustAggregate(t, []PartitionHits{
		{Partition: partition.FAQ, Hits: []match.Hit{hit("f0", 0.9), hit("f1", 0.9)}},
		{Partition: partition.Glossary, Hits: []match.Hit{hit("g0", 0.8)}},
	}, unitWeights)

	got := ids(Select(set, 2, tun))
	if !reflect.DeepEqual(got, []string{"f0", "g0"}) {
		t.Errorf("expected cap 1 to prefer glossary, got %v", got)
	}
}

// --- Tuning ---

func TestTuning_Validate(t *testing.T) {
	if err := DefaultTuning().Validate(); err != nil {
		t.Fatalf("default tuning invalid: %v", err)
	}
	zeros := DefaultTuning()
	zeros.LowThreshold, zeros.ClusterBonus, zeros.CandidateRatio = 0, 0, 0
	if err := zeros.Validate(); err != nil {
		t.Fatalf("explicit zeros must be accepted: %v", err)
	}

	mutations := map[string]func(*Tuning){
		"unordered thresholds": func(t *Tuning) { t.MediumThreshold = 0.9 },
		"negative low":         func(t *Tuning) { t.LowThreshold = -0.1 },
		"window":               func(t *Tuning) { t.ClusterWindow = 1 },
		"negative bonus":       func(t *Tuning) { t.ClusterBonus = -1 },
		"ratio":                func(t *Tuning) { t.CandidateRatio = 1.5 },
		"cap":                  func(t *Tuning) { t.PartitionCap = 0 },
		"max results":          func(t *Tuning) { t.MaxResults = 0 },
		"nan bonus":            func(t *Tuning) { t.ClusterBonus = math.NaN() },
		"nan ratio":            func(t *Tuning) { t.CandidateRatio = math.NaN() },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			tun := DefaultTuning()
			mutate(&tun)
			if err := tun.Validate(); !errors.Is(err, domain.ErrInvalidTuning) {
				t.Errorf("expected ErrInvalidTuning, got %v", err)
			}
		})
	}
}
