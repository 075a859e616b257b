package common

// Ingredient 食材
type Ingredient struct {
	Name               string  `json:"name" validate:"required"`
	Quantity           float64 `json:"quantity" validate:"gte=0"`
	Unit               string  `json:"unit"`
	SubstitutionReason string  `json:"substitution_reason,omitempty"`
}

// Step 製作步驟，Index 為步驟位置而非跨版本的穩定識別
type Step struct {
	Index              int    `json:"index" validate:"gte=0"`
	Description        string `json:"description"`
	ModificationReason string `json:"modification_reason,omitempty"`
}

// NutritionProfile 營養資訊
type NutritionProfile struct {
	Calories        float64 `json:"calories" validate:"gte=0"`
	Carbs           float64 `json:"carbs" validate:"gte=0"`
	CarbsPerServing float64 `json:"carbs_per_serving" validate:"gte=0"`
	Protein         float64 `json:"protein" validate:"gte=0"`
	Fat             float64 `json:"fat" validate:"gte=0"`
	Fiber           float64 `json:"fiber" validate:"gte=0"`
}

// Recipe 食譜（比對引擎的唯讀輸入）
//
// Ingredients、Steps 為 nil 或 Nutrition 為 nil 視為欄位缺失。
type Recipe struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Ingredients []Ingredient      `json:"ingredients" validate:"required,dive"`
	Steps       []Step            `json:"steps" validate:"required,dive"`
	Nutrition   *NutritionProfile `json:"nutrition" validate:"required"`
}
