package diff

import (
	"recipe-modifier/internal/pkg/common"
)

func ing(name string, qty float64, unit string) common.Ingredient {
	return common.Ingredient{Name: name, Quantity: qty, Unit: unit}
}

func steps(descriptions ...string) []common.Step {
	out := make([]common.Step, 0, len(descriptions))
	for i, d := range descriptions {
		out = append(out, common.Step{Index: i, Description: d})
	}
	return out
}

func pancakes() *common.Recipe {
	return &common.Recipe{
		ID:    "r-1",
		Title: "Naleśniki",
		Ingredients: []common.Ingredient{
			ing("mąka pszenna", 200, "g"),
			ing("mleko", 300, "ml"),
			ing("jajko", 2, "szt"),
			ing("cukier", 1, "łyżka"),
		},
		Steps: steps("Wymieszaj składniki", "Odstaw na 20 minut", "Smaż na patelni"),
		Nutrition: &common.NutritionProfile{
			Calories:        350,
			Carbs:           50,
			CarbsPerServing: 25,
			Protein:         12,
			Fat:             10,
			Fiber:           2,
		},
	}
}

func keysOf(diffs []IngredientDiff) []string {
	keys := make([]string, 0, len(diffs))
	for _, d := range diffs {
		keys = append(keys, d.Key)
	}
	return keys
}
