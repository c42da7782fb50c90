package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRunReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := RunReport{
		ListingURL: "https://example.test/chart",
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 500_000_000, time.FixedZone("X", 8*3600)),
		Summary:    ReportSummary{Links: 4},
		Items: []ItemResult{
			{URL: "https://example.test/title/c", Status: StatusSkipped},
			{URL: "https://example.test/title/a", Status: StatusWritten},
			{URL: "https://example.test/title/d", Status: StatusFailed},
			{URL: "https://example.test/title/b", Status: StatusWritten},
		},
	}

	r.Finalize()

	got := []string{r.Items[0].URL, r.Items[1].URL, r.Items[2].URL, r.Items[3].URL}
	want := []string{
		"https://example.test/title/a",
		"https://example.test/title/b",
		"https://example.test/title/c",
		"https://example.test/title/d",
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("items 排序不符合契约：%v", got)
		}
	}
	if r.Summary != (ReportSummary{Links: 4, Written: 2, Skipped: 1, Failed: 1}) {
		t.Fatalf("summary 统计不正确：%+v", r.Summary)
	}
	if r.ElapsedMS != 1500 || r.Elapsed() != 1500*time.Millisecond {
		t.Fatalf("elapsed 不正确：%d", r.ElapsedMS)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	// time.Time 在 UTC 下应输出 'Z' 后缀。
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
}

func TestRunReport_Finalize_NilItemsBecomeEmptyArray(t *testing.T) {
	r := RunReport{ErrorCode: ErrCodeNoItems}
	r.Finalize()

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte(`"items":[]`)) {
		t.Fatalf("items 应输出为 []：%s", string(b))
	}
	if r.OK() {
		t.Fatalf("ErrorCode 非空时 OK() 应为 false")
	}
}

func TestMovieRecord_Missing(t *testing.T) {
	full := MovieRecord{Position: "1", Title: "T", ReleaseDate: "2024", Rating: "7.1", Summary: "S"}
	if !full.Complete() {
		t.Fatalf("完整记录被判为不完整：%v", full.Missing())
	}
	if got := full.Row(); len(got) != 5 || got[0] != "1" || got[4] != "S" {
		t.Fatalf("Row 列顺序不符合预期：%v", got)
	}

	noSummary := full
	noSummary.Summary = "  \n"
	miss := noSummary.Missing()
	if len(miss) != 1 || miss[0] != "summary" {
		t.Fatalf("期望仅缺 summary，实际 %v", miss)
	}

	if n := len(MovieRecord{}.Missing()); n != 5 {
		t.Fatalf("空记录应缺 5 个字段，实际 %d", n)
	}
}
