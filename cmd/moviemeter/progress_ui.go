package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/moviemeter/internal/app/run"
	"github.com/John-Robertt/moviemeter/internal/config"
	"github.com/John-Robertt/moviemeter/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是一个“简洁版”的交互终端进度输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - keepalive：长时间无条目完成时也会定期输出一行，降低等待焦虑
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	workers int
	total   int
	done    int
	written int
	fail    int
	skip    int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "[%s] moviemeter run\n", now.Format("15:04:05"))
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  provider: %s\n", eff.Provider)
	if eff.ListingURL != "" {
		fmt.Fprintf(p.w, "  listing: %s\n", truncate(eff.ListingURL, 120))
	}
	fmt.Fprintf(p.w, "  concurrency: %d\n", eff.Concurrency)
	fmt.Fprintf(p.w, "  timeout: %s jitter: <%s\n", eff.Timeout, eff.Jitter)
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	fmt.Fprintf(p.w, "  sink: %s\n", eff.Sink)
	fmt.Fprintf(p.w, "  output: %s\n", eff.OutputDir)
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case run.PhaseListing:
		fmt.Fprintf(p.w, "列表: links=%d (%s)\n", intField(fields, "links"), formatShortDuration(dur))
	case run.PhaseDispatch:
		p.workers = intField(fields, "workers")
		p.total = intField(fields, "total_items")
		fmt.Fprintf(p.w, "执行: workers=%d total_items=%d sink=%v\n\n", p.workers, p.total, fields["sink"])
		if p.total > 0 && !p.tickerStarted {
			p.startTickerLocked()
		}
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnItemDone(idx, total int, res domain.ItemResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// idx/total 由 run 层给出；这里同时维护自己的计数，供 keepalive 使用。
	p.done = idx
	p.total = total

	dur := time.Duration(res.DurationMS) * time.Millisecond
	switch res.Status {
	case domain.StatusWritten:
		p.written++
		fmt.Fprintf(p.w, "[%d/%d] OK #%s %s (%s)\n",
			idx, total, res.Position, truncate(res.Title, 80), formatShortDuration(dur),
		)
	case domain.StatusSkipped:
		p.skip++
		fmt.Fprintf(p.w, "[%d/%d] SKIP %s %s: %s (%s)\n",
			idx, total, res.URL, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	default:
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] FAIL %s %s: %s (%s)\n",
			idx, total, res.URL, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	}

	p.lastPrinted = time.Now()

	// 最后一条完成：停止 ticker，避免在结束打印后又冒出 keepalive。
	if p.done >= p.total {
		p.stopTickerLocked()
	}
}

// Stop 停止 keepalive ticker（run 提前结束时由 CLI 调用；可重复调用）。
func (p *progressUI) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTickerLocked()
}

func (p *progressUI) stopTickerLocked() {
	if p.tickerStarted {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) startTickerLocked() {
	stopCh := make(chan struct{})
	p.stopCh = stopCh
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && p.done < p.total && time.Since(p.lastPrinted) > threshold {
					p.printProgressLocked()
				}
				p.mu.Unlock()
			case <-stopCh:
				return
			}
		}
	}()
}

func (p *progressUI) printProgressLocked() {
	active := p.workers
	if remain := p.total - p.done; remain < active {
		active = remain
	}
	fmt.Fprintf(p.w, "进度: done=%d/%d written=%d fail=%d skip=%d active=%d elapsed=%s\n",
		p.done, p.total, p.written, p.fail, p.skip, active, formatElapsed(time.Since(p.startedAt)),
	)
	p.lastPrinted = time.Now()
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

// truncate 按 rune 截断，避免切坏多字节字符。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
