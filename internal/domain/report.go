package domain

import (
	"sort"
	"time"
)

const (
	StatusWritten = "written"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

const (
	ErrCodeTimeout          = "timeout"
	ErrCodeHTTPStatus       = "http_status"
	ErrCodeConnection       = "connection"
	ErrCodeTooManyRedirects = "too_many_redirects"
	ErrCodeRequestFailed    = "request_failed"
	ErrCodeParseFailed      = "parse_failed"
	ErrCodeIncomplete       = "incomplete_record"
	ErrCodeNoItems          = "no_items"
	ErrCodeSinkFailed       = "sink_failed"
	ErrCodeTargetConflict   = "target_conflict"
	ErrCodeIOFailed         = "io_failed"
	ErrCodeConfigInvalid    = "config_invalid"
	ErrCodeCanceled         = "canceled"
	ErrCodeUnexpected       = "unexpected"
)

// RunReport 是一次 run 的对外稳定输出（stdout JSON / report.json）。
//
// ErrorCode 非空表示 run 级失败（例如列表页抓取失败、列表为空）；
// 条目级失败只体现在 Items/Summary 中。
type RunReport struct {
	ListingURL string `json:"listing_url"`
	Output     string `json:"output"`
	Sink       string `json:"sink"`
	Workers    int    `json:"workers"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	ElapsedMS  int64     `json:"elapsed_ms"`

	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Links   int `json:"links"`
	Written int `json:"written"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ItemResult 是单个详情页的处理结果（written / skipped / failed）。
type ItemResult struct {
	URL    string `json:"url"`
	Status string `json:"status"`

	Position string `json:"position,omitempty"`
	Title    string `json:"title,omitempty"`

	ErrorCode  string `json:"error_code"`
	ErrorMsg   string `json:"error_msg"`
	DurationMS int64  `json:"duration_ms"`
}

// OK 表示 run 级没有失败（条目级失败不影响）。
func (r RunReport) OK() bool { return r.ErrorCode == "" }

// Finalize 做三件事：
// 1) 时间统一为 UTC，并计算 ElapsedMS
// 2) items 按 URL 稳定排序（完成顺序本身不稳定，不对外承诺）
// 3) summary 的 written/skipped/failed 由 items 计算得出；Links 由调用方填写
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() {
		r.ElapsedMS = r.FinishedAt.Sub(r.StartedAt).Milliseconds()
	}
	if r.Items == nil {
		r.Items = []ItemResult{}
	}

	sort.SliceStable(r.Items, func(i, j int) bool { return r.Items[i].URL < r.Items[j].URL })

	s := ReportSummary{Links: r.Summary.Links}
	for _, it := range r.Items {
		switch it.Status {
		case StatusWritten:
			s.Written++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// Elapsed 返回 run 的墙钟耗时。
func (r RunReport) Elapsed() time.Duration {
	return time.Duration(r.ElapsedMS) * time.Millisecond
}
