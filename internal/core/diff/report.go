package diff

import (
	"context"
	"strings"
	"time"

	"recipe-modifier/internal/core/quota"
	"recipe-modifier/internal/infrastructure/monitoring"
	"recipe-modifier/internal/pkg/common"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// 比對結果標籤
const (
	resultOK      = "ok"
	resultInvalid = "invalid"
)

// StatusCounts 各狀態數量
type StatusCounts struct {
	Unchanged int `json:"unchanged"`
	Modified  int `json:"modified"`
	Added     int `json:"added"`
	Removed   int `json:"removed"`
}

// Changed 非 unchanged 的數量
func (c StatusCounts) Changed() int {
	return c.Modified + c.Added + c.Removed
}

func (c *StatusCounts) add(s Status) {
	switch s {
	case StatusUnchanged:
		c.Unchanged++
	case StatusModified:
		c.Modified++
	case StatusAdded:
		c.Added++
	case StatusRemoved:
		c.Removed++
	}
}

// QualityCounts 營養評價數量
type QualityCounts struct {
	Good    int `json:"good"`
	Bad     int `json:"bad"`
	Neutral int `json:"neutral"`
}

// Summary 供 UI 徽章使用的摘要
type Summary struct {
	Ingredients StatusCounts  `json:"ingredients"`
	Steps       StatusCounts  `json:"steps"`
	Nutrition   QualityCounts `json:"nutrition"`
}

// UsageSnapshot 比對當下的剩餘額度
type UsageSnapshot struct {
	Remaining int `json:"remaining"`
	Limit     int `json:"limit"`
}

// ComparisonReport 食譜比對報告
type ComparisonReport struct {
	IngredientDiffs  []IngredientDiff `json:"ingredient_diffs"`
	StepDiffs        []StepDiff       `json:"step_diffs"`
	NutritionDeltas  []NutritionDelta `json:"nutrition_deltas"`
	Summary          Summary          `json:"summary"`
	UsageSnapshot    *UsageSnapshot   `json:"usage_snapshot,omitempty"`
	UsageUnavailable bool             `json:"usage_unavailable,omitempty"`
}

// Compare 比對原始與修改後食譜，不含額度資訊
//
// 輸入不完整或食材識別鍵重複時返回 InvalidRecipeError，不產生部分報告。
func Compare(original, modified *common.Recipe) (*ComparisonReport, error) {
	if err := ValidateRecipe("original", original); err != nil {
		return nil, err
	}
	if err := ValidateRecipe("modified", modified); err != nil {
		return nil, err
	}

	alignment, err := Match(original.Ingredients, modified.Ingredients)
	if err != nil {
		return nil, err
	}

	report := &ComparisonReport{
		IngredientDiffs: ClassifyIngredients(alignment),
		StepDiffs:       ClassifySteps(original.Steps, modified.Steps),
		NutritionDeltas: CompareNutrition(*original.Nutrition, *modified.Nutrition),
	}
	SortForDisplay(report.IngredientDiffs)
	report.Summary = summarize(report)

	return report, nil
}

func summarize(r *ComparisonReport) Summary {
	var s Summary
	for _, d := range r.IngredientDiffs {
		s.Ingredients.add(d.Status)
	}
	for _, d := range r.StepDiffs {
		s.Steps.add(d.Status)
	}
	for _, d := range r.NutritionDeltas {
		switch d.Quality {
		case QualityGood:
			s.Nutrition.Good++
		case QualityBad:
			s.Nutrition.Bad++
		default:
			s.Nutrition.Neutral++
		}
	}
	return s
}

// UsageReader 唯讀額度查詢
type UsageReader interface {
	GetUsage(ctx context.Context, userID string) (quota.Usage, error)
}

// Assembler 組合比對報告與額度快照
type Assembler struct {
	usage   UsageReader
	metrics *monitoring.Metrics
	tracer  trace.Tracer
}

// NewAssembler 創建報告組合器，usage 可為 nil（不附額度快照）
func NewAssembler(usage UsageReader, metrics *monitoring.Metrics) *Assembler {
	return &Assembler{
		usage:   usage,
		metrics: metrics,
		tracer:  otel.Tracer("recipe-modifier/diff"),
	}
}

// Compare 比對食譜並附上 userID 的額度快照
//
// 快照只透過 GetUsage 取得，不會消耗額度。額度無法確認時仍返回報告，
// 但不附快照並標記 UsageUnavailable。
func (a *Assembler) Compare(ctx context.Context, userID string, original, modified *common.Recipe) (*ComparisonReport, error) {
	ctx, span := a.tracer.Start(ctx, "diff.Compare")
	defer span.End()

	start := time.Now()
	report, err := Compare(original, modified)
	if err != nil {
		a.metrics.ObserveCompare(resultInvalid, time.Since(start))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	a.metrics.ObserveCompare(resultOK, time.Since(start))

	span.SetAttributes(
		attribute.Int("diff.ingredients_changed", report.Summary.Ingredients.Changed()),
		attribute.Int("diff.steps_changed", report.Summary.Steps.Changed()),
	)

	userID = strings.TrimSpace(userID)
	if a.usage == nil || userID == "" {
		return report, nil
	}

	usage, err := a.usage.GetUsage(ctx, userID)
	if err != nil {
		common.LogWarn("無法取得額度快照",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		span.RecordError(err)
		report.UsageUnavailable = true
		return report, nil
	}

	report.UsageSnapshot = &UsageSnapshot{Remaining: usage.Remaining, Limit: usage.Limit}
	return report, nil
}
