package diff

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName 食材識別鍵：去除前後空白、大小寫折疊並轉為 NFC
//
// 變音符號保留，"mąka" 與 "maka" 為不同食材。
func NormalizeName(name string) string {
	// cases.Caser 有狀態，不可跨 goroutine 共用
	folded := cases.Fold().String(strings.TrimSpace(name))
	return norm.NFC.String(folded)
}
