package categorizer

// OtherCategory is the catch-all bucket for labels missing from the correspondence table.
const OtherCategory = "その他"

// canonicalCategories defines the report columns. Order is significant and the
// literals must match the output column of existing correspondence tables.
var canonicalCategories = []string{
	"飲料・アルコール",
	"食品・菓子・外食",
	"小売・コンビニ",
	"化粧品・美容・ヘアケア",
	"アパレル・アクセサリ",
	"医薬品・医薬部外品・健康食品",
	"メガネ・コンタクト",
	"バス・トイレタリー・生活用品",
	"家電・電子機器",
	"ゲーム・おもちゃ・楽器",
	"レジャー・エンタメ・ギャンブル",
	"不動産・住宅関連",
	"自動車・電車・航空",
	"金融・保険（決済・クレジットカード含む）",
	"その他金融関連（ポイント訴求・公営ギャンブル含む）",
	"教育",
	"人材派遣・求人",
	"運輸・運送",
	"通信",
	"エネルギー・公共インフラ",
	"介護・福祉",
	"官公庁・団体",
	OtherCategory,
}

var canonicalIndex = buildCanonicalIndex()

func buildCanonicalIndex() map[string]int {
	idx := make(map[string]int, len(canonicalCategories))
	for i, c := range canonicalCategories {
		idx[c] = i
	}
	return idx
}

// CanonicalCategories returns a copy of the ordered canonical category list.
func CanonicalCategories() []string {
	return cloneStrings(canonicalCategories)
}

// IsCanonical reports whether name is one of the canonical categories.
func IsCanonical(name string) bool {
	_, ok := canonicalIndex[name]
	return ok
}

// FilterCategories returns the canonical categories contained in selected,
// always in canonical order. A nil or empty selection yields every category;
// names that are not canonical are ignored.
func FilterCategories(selected []string) []string {
	if len(selected) == 0 {
		return CanonicalCategories()
	}
	want := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		want[s] = struct{}{}
	}
	out := make([]string, 0, len(selected))
	for _, c := range canonicalCategories {
		if _, ok := want[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
