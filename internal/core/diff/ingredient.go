package diff

import (
	"sort"

	"recipe-modifier/internal/pkg/common"
)

// Status 差異狀態
type Status string

const (
	StatusUnchanged Status = "unchanged"
	StatusModified  Status = "modified"
	StatusAdded     Status = "added"
	StatusRemoved   Status = "removed"
)

// 顯示順序：modified、added、removed、unchanged
var displayRank = map[Status]int{
	StatusModified:  0,
	StatusAdded:     1,
	StatusRemoved:   2,
	StatusUnchanged: 3,
}

// IngredientDiff 單一食材的差異
type IngredientDiff struct {
	Key      string             `json:"key"`
	Status   Status             `json:"status"`
	Original *common.Ingredient `json:"original"`
	Modified *common.Ingredient `json:"modified"`
}

// ClassifyIngredients 為對齊結果標記狀態，每個識別鍵恰好一筆
func ClassifyIngredients(a Alignment) []IngredientDiff {
	diffs := make([]IngredientDiff, 0, len(a.Shared)+len(a.OnlyOriginal)+len(a.OnlyModified))

	for _, p := range a.Shared {
		orig, mod := p.Original, p.Modified
		status := StatusModified
		if orig.Quantity == mod.Quantity && orig.Unit == mod.Unit {
			status = StatusUnchanged
		}
		diffs = append(diffs, IngredientDiff{Key: p.Key, Status: status, Original: &orig, Modified: &mod})
	}
	for _, k := range a.OnlyOriginal {
		orig := k.Ingredient
		diffs = append(diffs, IngredientDiff{Key: k.Key, Status: StatusRemoved, Original: &orig})
	}
	for _, k := range a.OnlyModified {
		mod := k.Ingredient
		diffs = append(diffs, IngredientDiff{Key: k.Key, Status: StatusAdded, Modified: &mod})
	}
	return diffs
}

// SortForDisplay 依顯示順序穩定排序，同組內維持原本順序
func SortForDisplay(diffs []IngredientDiff) {
	sort.SliceStable(diffs, func(i, j int) bool {
		return displayRank[diffs[i].Status] < displayRank[diffs[j].Status]
	})
}
