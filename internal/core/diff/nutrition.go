package diff

import (
	"math"

	"recipe-modifier/internal/pkg/common"
)

// Quality 營養變化評價
type Quality string

const (
	QualityGood    Quality = "good"
	QualityBad     Quality = "bad"
	QualityNeutral Quality = "neutral"
)

// 變化幅度不超過 1% 視為 neutral
const neutralThreshold = 1.0

// 浮點誤差容許值，70→70.7 算出的 1.000000000000004 仍屬 neutral
const percentEpsilon = 1e-9

type polarity int

const (
	higherIsBetter polarity = iota
	lowerIsBetter
)

type nutrient struct {
	name     string
	polarity polarity
	value    func(common.NutritionProfile) float64
}

// 固定順序
var nutrients = []nutrient{
	{"calories", lowerIsBetter, func(p common.NutritionProfile) float64 { return p.Calories }},
	{"carbs", lowerIsBetter, func(p common.NutritionProfile) float64 { return p.Carbs }},
	{"carbs_per_serving", lowerIsBetter, func(p common.NutritionProfile) float64 { return p.CarbsPerServing }},
	{"protein", higherIsBetter, func(p common.NutritionProfile) float64 { return p.Protein }},
	{"fat", lowerIsBetter, func(p common.NutritionProfile) float64 { return p.Fat }},
	{"fiber", higherIsBetter, func(p common.NutritionProfile) float64 { return p.Fiber }},
}

// NutritionDelta 單一營養素的變化
type NutritionDelta struct {
	Nutrient      string  `json:"nutrient"`
	Original      float64 `json:"original"`
	Modified      float64 `json:"modified"`
	PercentChange float64 `json:"percent_change"`
	Quality       Quality `json:"quality"`
}

// CompareNutrition 計算每個營養素的百分比變化與評價
func CompareNutrition(original, modified common.NutritionProfile) []NutritionDelta {
	deltas := make([]NutritionDelta, 0, len(nutrients))
	for _, n := range nutrients {
		orig, mod := n.value(original), n.value(modified)
		pct := PercentChange(orig, mod)
		deltas = append(deltas, NutritionDelta{
			Nutrient:      n.name,
			Original:      orig,
			Modified:      mod,
			PercentChange: pct,
			Quality:       n.quality(pct),
		})
	}
	return deltas
}

// PercentChange 原值為 0 時返回 0
func PercentChange(original, modified float64) float64 {
	if original <= 0 {
		return 0
	}
	return (modified - original) / original * 100
}

func (n nutrient) quality(pct float64) Quality {
	if math.Abs(pct) <= neutralThreshold+percentEpsilon {
		return QualityNeutral
	}
	increased := pct > 0
	if increased == (n.polarity == higherIsBetter) {
		return QualityGood
	}
	return QualityBad
}
