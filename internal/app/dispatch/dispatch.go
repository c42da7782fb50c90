// Package dispatch 是有界并发的详情页分发器：把 N 个 URL 扇出给至多 min(C, N) 个并发执行，
// 再把每条结果扇入为 ItemResult。
//
// 分发器本身不解析页面、不持有 sink 锁；它只调度 ExtractFunc、调用 Appender，并在全部条目
// 结束（成功或失败）后才返回。
package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/moviemeter/internal/domain"
	"github.com/John-Robertt/moviemeter/internal/provider"
)

// ExtractFunc 抓取并解析一个详情页。字段不全应返回 *provider.IncompleteError。
type ExtractFunc func(ctx context.Context, pageURL string) (domain.MovieRecord, error)

// Appender 是分发器唯一需要的 sink 能力；实现必须自行保证并发安全与单行原子性。
type Appender interface {
	Append(ctx context.Context, rec domain.MovieRecord) error
}

type Options struct {
	// Workers 是并发上限 C；< 1 视为 1。
	Workers int
	Logger  *zap.Logger
	// OnItemDone 在调用方 goroutine 中串行调用（idx 从 1 开始，按完成顺序递增）。
	OnItemDone func(idx, total int, res domain.ItemResult)
}

// Result 是一次分发的汇总。Items 按完成顺序排列，不保证与输入顺序一致。
type Result struct {
	Workers int
	Items   []domain.ItemResult
	Summary domain.ReportSummary
}

// EffectiveWorkers 返回 min(workers, items)；items 为 0 时返回 0（不启动任何 worker）。
func EffectiveWorkers(workers, items int) int {
	if items <= 0 {
		return 0
	}
	if workers < 1 {
		workers = 1
	}
	if workers > items {
		return items
	}
	return workers
}

// Run 对每个 URL 执行 extract，并把完整记录追加到 sink。
//
// 单条失败（网络错误 / 字段不全 / sink 失败 / panic）只影响该条目，不会中断其它条目；
// Run 在所有条目结束后才返回。
func Run(ctx context.Context, urls []string, opts Options, extract ExtractFunc, sink Appender) Result {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	total := len(urls)
	workers := EffectiveWorkers(opts.Workers, total)
	res := Result{
		Workers: workers,
		Items:   make([]domain.ItemResult, 0, total),
		Summary: domain.ReportSummary{Links: total},
	}
	if total == 0 {
		return res
	}

	log.Debug("dispatch start", zap.Int("items", total), zap.Int("workers", workers))

	results := make(chan domain.ItemResult, total)

	var g errgroup.Group
	g.SetLimit(workers)
	go func() {
		for _, u := range urls {
			// SetLimit 满时 Go 会阻塞，保证同时在跑的 extract 不超过 workers 个。
			g.Go(func() error {
				results <- processOne(ctx, log, u, extract, sink)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	done := 0
	for it := range results {
		done++
		res.Items = append(res.Items, it)
		switch it.Status {
		case domain.StatusWritten:
			res.Summary.Written++
		case domain.StatusSkipped:
			res.Summary.Skipped++
		case domain.StatusFailed:
			res.Summary.Failed++
		}
		if opts.OnItemDone != nil {
			opts.OnItemDone(done, total, it)
		}
	}

	log.Debug("dispatch done",
		zap.Int("written", res.Summary.Written),
		zap.Int("skipped", res.Summary.Skipped),
		zap.Int("failed", res.Summary.Failed),
	)
	return res
}

func processOne(ctx context.Context, log *zap.Logger, pageURL string, extract ExtractFunc, sink Appender) (it domain.ItemResult) {
	started := time.Now()
	it = domain.ItemResult{URL: pageURL}

	defer func() {
		if r := recover(); r != nil {
			it.Status = domain.StatusFailed
			it.ErrorCode = domain.ErrCodeUnexpected
			it.ErrorMsg = fmt.Sprintf("处理详情页时发生 panic：%v", r)
			log.Error("item panicked", zap.String("url", pageURL), zap.Any("panic", r), zap.Stack("stack"))
		}
		it.DurationMS = time.Since(started).Milliseconds()
	}()

	rec, err := extract(ctx, pageURL)
	if err == nil && !rec.Complete() {
		err = &provider.IncompleteError{URL: pageURL, Missing: rec.Missing()}
	}
	if err != nil {
		if provider.IsIncomplete(err) {
			it.Status = domain.StatusSkipped
			it.ErrorCode = domain.ErrCodeIncomplete
			it.ErrorMsg = err.Error()
			log.Debug("item skipped", zap.String("url", pageURL), zap.Error(err))
			return it
		}
		it.Status = domain.StatusFailed
		it.ErrorCode = provider.Code(err)
		it.ErrorMsg = provider.Humanize(err)
		log.Warn("item failed", zap.String("url", pageURL), zap.String("error_code", it.ErrorCode), zap.Error(err))
		return it
	}

	if err := sink.Append(ctx, rec); err != nil {
		it.Status = domain.StatusFailed
		it.ErrorCode = domain.ErrCodeSinkFailed
		it.ErrorMsg = fmt.Sprintf("写入失败：%v", err)
		log.Warn("append failed", zap.String("url", pageURL), zap.Error(err))
		return it
	}

	it.Status = domain.StatusWritten
	it.Position = rec.Position
	it.Title = rec.Title
	return it
}
