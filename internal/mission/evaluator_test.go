package mission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"finkid-backend/internal/model"
)

func TestRegistry_KnownTypes(t *testing.T) {
	r := NewRegistry()

	for _, missionType := range []string{
		model.MissionTypeLogExpenses,
		model.MissionTypeExpenseTracking,
		model.MissionTypeLogSavings,
		model.MissionTypeSavingTracking,
		model.MissionTypeCombined,
		model.MissionTypeTamagotchiCare,
	} {
		_, ok := r.Get(missionType)
		assert.True(t, ok, "missing evaluator for %s", missionType)
	}

	_, ok := r.Get("unknown_type")
	assert.False(t, ok)
	assert.Equal(t, float64(0), r.Progress("unknown_type", nil, nil))
}

func TestExpenseProgress(t *testing.T) {
	r := NewRegistry()
	req := map[string]int{model.ProgressKeyExpenseCount: 3}

	assert.Equal(t, float64(0), r.Progress(model.MissionTypeExpenseTracking, req, map[string]int{}))
	assert.InDelta(t, 100.0/3, r.Progress(model.MissionTypeExpenseTracking, req, map[string]int{model.ProgressKeyExpenseCount: 1}), 1e-9)
	assert.Equal(t, float64(100), r.Progress(model.MissionTypeExpenseTracking, req, map[string]int{model.ProgressKeyExpenseCount: 3}))
	// Clamped past the requirement
	assert.Equal(t, float64(100), r.Progress(model.MissionTypeExpenseTracking, req, map[string]int{model.ProgressKeyExpenseCount: 10}))
}

func TestSavingProgressAliases(t *testing.T) {
	r := NewRegistry()
	req := map[string]int{model.ProgressKeySavingCount: 2}
	progress := map[string]int{model.ProgressKeySavingCount: 1}

	// Both tags share one evaluator
	assert.Equal(t, float64(50), r.Progress(model.MissionTypeLogSavings, req, progress))
	assert.Equal(t, float64(50), r.Progress(model.MissionTypeSavingTracking, req, progress))
}

func TestCombinedProgress(t *testing.T) {
	r := NewRegistry()
	req := map[string]int{
		model.ProgressKeyExpenseCount: 2,
		model.ProgressKeySavingCount:  1,
	}

	// One of two expenses, no savings: (0.5 + 0) / 2
	assert.Equal(t, float64(25), r.Progress(model.MissionTypeCombined, req,
		map[string]int{model.ProgressKeyExpenseCount: 1}))
	// Both halves complete
	assert.Equal(t, float64(100), r.Progress(model.MissionTypeCombined, req,
		map[string]int{model.ProgressKeyExpenseCount: 2, model.ProgressKeySavingCount: 1}))
	// Overshooting one side does not compensate for the other
	assert.Equal(t, float64(50), r.Progress(model.MissionTypeCombined, req,
		map[string]int{model.ProgressKeyExpenseCount: 10}))
}

func TestCareProgress(t *testing.T) {
	r := NewRegistry()
	req := map[string]int{model.ProgressKeyFeedCount: 2}

	assert.Equal(t, float64(50), r.Progress(model.MissionTypeTamagotchiCare, req,
		map[string]int{model.ProgressKeyFeedCount: 1}))
	assert.True(t, r.Counts(model.MissionTypeTamagotchiCare, model.ProgressKeyFeedCount))
	assert.False(t, r.Counts(model.MissionTypeTamagotchiCare, model.ProgressKeyExpenseCount))
}

func TestCounts(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.Counts(model.MissionTypeExpenseTracking, model.ProgressKeyExpenseCount))
	assert.False(t, r.Counts(model.MissionTypeExpenseTracking, model.ProgressKeySavingCount))
	assert.True(t, r.Counts(model.MissionTypeCombined, model.ProgressKeyExpenseCount))
	assert.True(t, r.Counts(model.MissionTypeCombined, model.ProgressKeySavingCount))
	assert.False(t, r.Counts("unknown_type", model.ProgressKeyExpenseCount))
}

// TestProgressBoundsProperty checks that every evaluator stays in
// [0,100] for arbitrary requirement and progress values, and that
// progress is monotonic in the counted keys.
func TestProgressBoundsProperty(t *testing.T) {
	r := NewRegistry()
	types := []string{
		model.MissionTypeLogExpenses,
		model.MissionTypeLogSavings,
		model.MissionTypeCombined,
		model.MissionTypeTamagotchiCare,
	}

	rapid.Check(t, func(rt *rapid.T) {
		missionType := rapid.SampledFrom(types).Draw(rt, "missionType")
		req := map[string]int{
			model.ProgressKeyExpenseCount: rapid.IntRange(0, 10).Draw(rt, "reqExpense"),
			model.ProgressKeySavingCount:  rapid.IntRange(0, 10).Draw(rt, "reqSaving"),
			model.ProgressKeyFeedCount:    rapid.IntRange(0, 10).Draw(rt, "reqFeed"),
		}
		progress := map[string]int{
			model.ProgressKeyExpenseCount: rapid.IntRange(0, 50).Draw(rt, "expense"),
			model.ProgressKeySavingCount:  rapid.IntRange(0, 50).Draw(rt, "saving"),
			model.ProgressKeyFeedCount:    rapid.IntRange(0, 50).Draw(rt, "feed"),
		}

		pct := r.Progress(missionType, req, progress)
		if pct < 0 || pct > 100 {
			rt.Fatalf("progress %f out of [0,100]", pct)
		}

		// Incrementing a counted key never decreases progress
		e, ok := r.Get(missionType)
		require.True(t, ok)
		for _, key := range e.CountedKeys() {
			bumped := make(map[string]int, len(progress))
			for k, v := range progress {
				bumped[k] = v
			}
			bumped[key]++
			if r.Progress(missionType, req, bumped) < pct {
				rt.Fatalf("progress decreased after incrementing %s", key)
			}
		}
	})
}

// TestProgressReachesFullProperty checks that meeting every requirement
// always yields exactly 100.
func TestProgressReachesFullProperty(t *testing.T) {
	r := NewRegistry()
	types := []string{
		model.MissionTypeLogExpenses,
		model.MissionTypeLogSavings,
		model.MissionTypeCombined,
		model.MissionTypeTamagotchiCare,
	}

	rapid.Check(t, func(rt *rapid.T) {
		missionType := rapid.SampledFrom(types).Draw(rt, "missionType")
		req := map[string]int{
			model.ProgressKeyExpenseCount: rapid.IntRange(1, 10).Draw(rt, "reqExpense"),
			model.ProgressKeySavingCount:  rapid.IntRange(1, 10).Draw(rt, "reqSaving"),
			model.ProgressKeyFeedCount:    rapid.IntRange(1, 10).Draw(rt, "reqFeed"),
		}
		progress := map[string]int{}
		for k, v := range req {
			progress[k] = v + rapid.IntRange(0, 5).Draw(rt, "extra_"+k)
		}

		if pct := r.Progress(missionType, req, progress); pct != 100 {
			rt.Fatalf("expected 100%% for met requirements, got %f", pct)
		}
	})
}
