package domain

import "strings"

// MovieRecord 是一条完整的电影记录（五个字段全部非空才允许写入 sink）。
//
// 字段均保留页面原始文本（仅 trim），不做格式校验。
type MovieRecord struct {
	Position    string `json:"position"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	Rating      string `json:"rating"`
	Summary     string `json:"summary"`
}

// Row 返回 CSV 行的固定列顺序：position, title, date, rating, summary。
func (r MovieRecord) Row() []string {
	return []string{r.Position, r.Title, r.ReleaseDate, r.Rating, r.Summary}
}

// Missing 返回缺失（trim 后为空）的字段名；完整记录返回 nil。
func (r MovieRecord) Missing() []string {
	var out []string
	for _, f := range []struct {
		name string
		v    string
	}{
		{"position", r.Position},
		{"title", r.Title},
		{"release_date", r.ReleaseDate},
		{"rating", r.Rating},
		{"summary", r.Summary},
	} {
		if strings.TrimSpace(f.v) == "" {
			out = append(out, f.name)
		}
	}
	return out
}

func (r MovieRecord) Complete() bool { return len(r.Missing()) == 0 }
