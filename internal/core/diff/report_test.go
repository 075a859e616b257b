package diff

import (
	"context"
	"errors"
	"testing"
	"time"

	"recipe-modifier/internal/core/quota"
	"recipe-modifier/internal/infrastructure/monitoring"
	"recipe-modifier/internal/pkg/common"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type stubUsage struct {
	usage quota.Usage
	err   error
	calls int
}

func (s *stubUsage) GetUsage(ctx context.Context, userID string) (quota.Usage, error) {
	s.calls++
	return s.usage, s.err
}

func TestCompare_ReportAndSummary(t *testing.T) {
	original := pancakes()
	modified := pancakes()
	modified.Ingredients = []common.Ingredient{
		ing("mąka migdałowa", 200, "g"),
		ing("mleko", 250, "ml"),
		ing("jajko", 2, "szt"),
		ing("erytrytol", 1, "łyżka"),
	}
	modified.Steps = steps("Wymieszaj składniki", "Odstaw na 10 minut", "Smaż na patelni")
	modified.Nutrition = &common.NutritionProfile{
		Calories: 280, Carbs: 12, CarbsPerServing: 6, Protein: 8, Fat: 10, Fiber: 2,
	}

	report, err := Compare(original, modified)
	require.NoError(t, err)

	assert.Equal(t, StatusCounts{Unchanged: 1, Modified: 1, Added: 2, Removed: 2}, report.Summary.Ingredients)
	assert.Equal(t, 5, report.Summary.Ingredients.Changed())
	assert.Equal(t, StatusCounts{Unchanged: 2, Modified: 1}, report.Summary.Steps)
	assert.Equal(t, QualityCounts{Good: 3, Bad: 1, Neutral: 2}, report.Summary.Nutrition)

	assert.Equal(t, []string{"mleko", "mąka migdałowa", "erytrytol", "mąka pszenna", "cukier", "jajko"}, keysOf(report.IngredientDiffs))
	assert.Len(t, report.StepDiffs, 3)
	assert.Len(t, report.NutritionDeltas, 6)
	assert.Nil(t, report.UsageSnapshot)
	assert.False(t, report.UsageUnavailable)
}

func TestCompare_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(orig, mod *common.Recipe) (*common.Recipe, *common.Recipe)
	}{
		{"nil original", func(o, m *common.Recipe) (*common.Recipe, *common.Recipe) { return nil, m }},
		{"missing ingredients", func(o, m *common.Recipe) (*common.Recipe, *common.Recipe) {
			o.Ingredients = nil
			return o, m
		}},
		{"missing steps", func(o, m *common.Recipe) (*common.Recipe, *common.Recipe) {
			m.Steps = nil
			return o, m
		}},
		{"missing nutrition", func(o, m *common.Recipe) (*common.Recipe, *common.Recipe) {
			m.Nutrition = nil
			return o, m
		}},
		{"empty ingredient name", func(o, m *common.Recipe) (*common.Recipe, *common.Recipe) {
			m.Ingredients[0].Name = ""
			return o, m
		}},
		{"negative quantity", func(o, m *common.Recipe) (*common.Recipe, *common.Recipe) {
			o.Ingredients[1].Quantity = -1
			return o, m
		}},
		{"negative nutrient", func(o, m *common.Recipe) (*common.Recipe, *common.Recipe) {
			m.Nutrition.Fiber = -2
			return o, m
		}},
		{"duplicate normalized key", func(o, m *common.Recipe) (*common.Recipe, *common.Recipe) {
			m.Ingredients = append(m.Ingredients, ing(" MLEKO", 100, "ml"))
			return o, m
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig, mod := tt.mutate(pancakes(), pancakes())
			report, err := Compare(orig, mod)
			assert.Nil(t, report)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrInvalidRecipe), err.Error())
		})
	}
}

func TestCompare_EmptyCollectionsAreValid(t *testing.T) {
	orig := pancakes()
	orig.Ingredients = []common.Ingredient{}
	orig.Steps = []common.Step{}

	report, err := Compare(orig, pancakes())
	require.NoError(t, err)
	assert.Equal(t, 4, report.Summary.Ingredients.Added)
	assert.Equal(t, 3, report.Summary.Steps.Added)
}

// AssemblerTestSuite 報告組合器測試
type AssemblerTestSuite struct {
	suite.Suite
	ctx     context.Context
	metrics *monitoring.Metrics
}

func (s *AssemblerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.metrics = monitoring.NewMetrics("test")
}

func (s *AssemblerTestSuite) TestAttachesUsageSnapshot() {
	usage := &stubUsage{usage: quota.Usage{Count: 2, Limit: 5, Remaining: 3}}
	a := NewAssembler(usage, s.metrics)

	report, err := a.Compare(s.ctx, "user-1", pancakes(), pancakes())
	s.Require().NoError(err)
	s.Require().NotNil(report.UsageSnapshot)
	s.Equal(UsageSnapshot{Remaining: 3, Limit: 5}, *report.UsageSnapshot)
	s.False(report.UsageUnavailable)
	s.Equal(1, usage.calls)
}

func (s *AssemblerTestSuite) TestNoUserSkipsSnapshot() {
	usage := &stubUsage{}
	a := NewAssembler(usage, s.metrics)

	report, err := a.Compare(s.ctx, "  ", pancakes(), pancakes())
	s.Require().NoError(err)
	s.Nil(report.UsageSnapshot)
	s.False(report.UsageUnavailable)
	s.Zero(usage.calls)
}

func (s *AssemblerTestSuite) TestStoreUnavailableStillReturnsReport() {
	usage := &stubUsage{err: common.NewQuotaStoreUnavailableError(errors.New("dial tcp: refused"))}
	a := NewAssembler(usage, s.metrics)

	report, err := a.Compare(s.ctx, "user-1", pancakes(), pancakes())
	s.Require().NoError(err)
	s.Nil(report.UsageSnapshot)
	s.True(report.UsageUnavailable)
}

func (s *AssemblerTestSuite) TestInvalidRecipeSkipsUsage() {
	usage := &stubUsage{}
	a := NewAssembler(usage, s.metrics)

	bad := pancakes()
	bad.Steps = nil
	_, err := a.Compare(s.ctx, "user-1", bad, pancakes())
	s.True(errors.Is(err, common.ErrInvalidRecipe))
	s.Zero(usage.calls)
}

func (s *AssemblerTestSuite) TestSnapshotNeverSpendsQuota() {
	tracker, err := quota.NewTracker(quota.NewMemoryStore(quota.MemoryOptions{}), 5,
		quota.WithClock(quota.ClockFunc(func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) })))
	s.Require().NoError(err)

	_, err = tracker.CheckAndIncrement(s.ctx, "user-1")
	s.Require().NoError(err)

	a := NewAssembler(tracker, s.metrics)
	for i := 0; i < 3; i++ {
		report, err := a.Compare(s.ctx, "user-1", pancakes(), pancakes())
		s.Require().NoError(err)
		s.Equal(UsageSnapshot{Remaining: 4, Limit: 5}, *report.UsageSnapshot)
	}

	usage, err := tracker.GetUsage(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(1, usage.Count)
}

func (s *AssemblerTestSuite) TestRecordsCompareMetrics() {
	a := NewAssembler(nil, s.metrics)

	_, err := a.Compare(s.ctx, "", pancakes(), pancakes())
	s.Require().NoError(err)
	bad := pancakes()
	bad.Nutrition = nil
	_, err = a.Compare(s.ctx, "", bad, pancakes())
	s.Require().Error(err)

	count, err := testutil.GatherAndCount(s.metrics.Registry(), "test_recipe_compare_total")
	s.Require().NoError(err)
	s.Equal(2, count)

	count, err = testutil.GatherAndCount(s.metrics.Registry(), "test_recipe_compare_duration_seconds")
	s.Require().NoError(err)
	s.Equal(1, count)
}

func TestAssemblerSuite(t *testing.T) {
	suite.Run(t, new(AssemblerTestSuite))
}
