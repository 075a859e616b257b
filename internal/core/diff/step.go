package diff

import (
	"sort"

	"recipe-modifier/internal/pkg/common"
)

// StepDiff 單一步驟的差異，Index 為依步驟序號排序後的位置
type StepDiff struct {
	Index    int          `json:"index"`
	Status   Status       `json:"status"`
	Original *common.Step `json:"original"`
	Modified *common.Step `json:"modified"`
}

// ClassifySteps 依步驟序號排序後逐位置比對步驟描述
//
// 不做內容對齊：中間插入或刪除一個步驟會讓之後每一步都顯示為 modified。
func ClassifySteps(original, modified []common.Step) []StepDiff {
	original, modified = orderSteps(original), orderSteps(modified)

	n := len(original)
	if len(modified) > n {
		n = len(modified)
	}

	diffs := make([]StepDiff, 0, n)
	for i := 0; i < n; i++ {
		d := StepDiff{Index: i}
		if i < len(original) {
			s := original[i]
			d.Original = &s
		}
		if i < len(modified) {
			s := modified[i]
			d.Modified = &s
		}

		switch {
		case d.Original == nil:
			d.Status = StatusAdded
		case d.Modified == nil:
			d.Status = StatusRemoved
		case d.Original.Description == d.Modified.Description:
			d.Status = StatusUnchanged
		default:
			d.Status = StatusModified
		}
		diffs = append(diffs, d)
	}
	return diffs
}

// orderSteps 依 Index 穩定排序的副本，序號相同時保留送入順序
func orderSteps(steps []common.Step) []common.Step {
	ordered := make([]common.Step, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})
	return ordered
}
