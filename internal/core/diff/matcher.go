package diff

import (
	"recipe-modifier/internal/pkg/common"
)

// KeyedIngredient 帶識別鍵的食材
type KeyedIngredient struct {
	Key        string
	Ingredient common.Ingredient
}

// Pair 兩側皆存在的食材
type Pair struct {
	Key      string
	Original common.Ingredient
	Modified common.Ingredient
}

// Alignment 食材對齊結果
//
// Shared 與 OnlyOriginal 依原始食譜順序，OnlyModified 依修改後食譜順序。
type Alignment struct {
	Shared       []Pair
	OnlyOriginal []KeyedIngredient
	OnlyModified []KeyedIngredient
}

// Match 以正規化名稱對齊兩組食材
//
// 同一側出現相同識別鍵視為輸入錯誤，不會合併。
func Match(original, modified []common.Ingredient) (Alignment, error) {
	origKeyed, err := keyIngredients("original", original)
	if err != nil {
		return Alignment{}, err
	}
	modKeyed, err := keyIngredients("modified", modified)
	if err != nil {
		return Alignment{}, err
	}

	modIndex := make(map[string]int, len(modKeyed))
	for i, k := range modKeyed {
		modIndex[k.Key] = i
	}

	var a Alignment
	seen := make(map[string]struct{}, len(origKeyed))
	for _, o := range origKeyed {
		if i, ok := modIndex[o.Key]; ok {
			a.Shared = append(a.Shared, Pair{Key: o.Key, Original: o.Ingredient, Modified: modKeyed[i].Ingredient})
			seen[o.Key] = struct{}{}
			continue
		}
		a.OnlyOriginal = append(a.OnlyOriginal, o)
	}
	for _, m := range modKeyed {
		if _, ok := seen[m.Key]; !ok {
			a.OnlyModified = append(a.OnlyModified, m)
		}
	}
	return a, nil
}

func keyIngredients(side string, ingredients []common.Ingredient) ([]KeyedIngredient, error) {
	keyed := make([]KeyedIngredient, 0, len(ingredients))
	positions := make(map[string]int, len(ingredients))

	for i, ing := range ingredients {
		key := NormalizeName(ing.Name)
		if key == "" {
			return nil, common.NewInvalidRecipeError("%s recipe: ingredients[%d].name is blank", side, i)
		}
		if first, dup := positions[key]; dup {
			return nil, common.NewInvalidRecipeError(
				"%s recipe: ingredients[%d] %q duplicates ingredients[%d] (key %q)",
				side, i, ing.Name, first, key)
		}
		positions[key] = i
		keyed = append(keyed, KeyedIngredient{Key: key, Ingredient: ing})
	}
	return keyed, nil
}
