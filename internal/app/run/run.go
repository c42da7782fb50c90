package run

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/moviemeter/internal/app/dispatch"
	"github.com/John-Robertt/moviemeter/internal/config"
	"github.com/John-Robertt/moviemeter/internal/domain"
	"github.com/John-Robertt/moviemeter/internal/infra/fsx"
	"github.com/John-Robertt/moviemeter/internal/infra/httpx"
	"github.com/John-Robertt/moviemeter/internal/infra/sink"
	"github.com/John-Robertt/moviemeter/internal/provider"
)

// 阶段名（Observer.OnPhaseDone 的 name）。
const (
	PhaseListing  = "listing"
	PhaseDispatch = "dispatch"
)

// Execute 执行一次抓取，并返回对外稳定的 RunReport。
// 单条详情页失败只体现在 Items 中；只有列表页/输出目录/sink 失败才是 run 级错误（ErrorCode 非空）。
func Execute(ctx context.Context, eff config.EffectiveConfig, reg provider.Registry, log *zap.Logger) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, reg, log, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, reg provider.Registry, log *zap.Logger, obs Observer) (rr domain.RunReport) {
	if log == nil {
		log = zap.NewNop()
	}

	rr = domain.RunReport{
		Output:    eff.OutputDir,
		Sink:      eff.Sink,
		StartedAt: time.Now().UTC(),
		Items:     []domain.ItemResult{},
	}
	// 无论从哪条路径返回，都补齐 FinishedAt/耗时并做稳定化。
	defer func() {
		if r := recover(); r != nil {
			log.Error("run panic", zap.Any("panic", r), zap.Stack("stack"))
			rr.ErrorCode = domain.ErrCodeUnexpected
			rr.ErrorMsg = fmt.Sprintf("发生未预期的错误：%v", r)
		}
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
	}()

	if obs != nil {
		obs.OnStart(eff)
	}

	p, ok := reg.Get(eff.Provider)
	if !ok {
		rr.ErrorCode = domain.ErrCodeConfigInvalid
		rr.ErrorMsg = fmt.Sprintf("未知 provider：%q（可用：%s）", eff.Provider, strings.Join(reg.Names(), ", "))
		return rr
	}
	rr.ListingURL = p.ListingURL()

	client, err := httpx.NewClient(httpx.Options{
		UserAgent: eff.UserAgent,
		Timeout:   eff.Timeout,
		ProxyURL:  eff.ProxyURL,
	})
	if err != nil {
		rr.ErrorCode = domain.ErrCodeConfigInvalid
		rr.ErrorMsg = fmt.Sprintf("proxy.url 无效：%v", err)
		return rr
	}

	// 列表页先于任何磁盘写入：列表失败/为空时不创建输出目录。
	listingStarted := time.Now()
	links, err := p.FetchListing(ctx, client)
	listingDur := time.Since(listingStarted)
	if err != nil {
		rr.ErrorCode = provider.Code(err)
		rr.ErrorMsg = provider.Humanize(err)
		log.Warn("listing failed", zap.String("url", rr.ListingURL), zap.String("code", rr.ErrorCode), zap.Error(err))
		if obs != nil {
			obs.OnPhaseDone(PhaseListing, map[string]any{"links": 0}, listingDur)
		}
		return rr
	}
	if len(links) == 0 {
		rr.ErrorCode = domain.ErrCodeNoItems
		rr.ErrorMsg = provider.Humanize(provider.ErrNoItems)
		return rr
	}
	rr.Summary.Links = len(links)
	log.Info("listing done", zap.Int("links", len(links)), zap.Duration("dur", listingDur))
	if obs != nil {
		obs.OnPhaseDone(PhaseListing, map[string]any{"links": len(links)}, listingDur)
	}

	if err := fsx.EnsureDir(eff.OutputDir); err != nil {
		rr.ErrorCode = domain.ErrCodeIOFailed
		if fsx.IsPathTypeConflict(err) {
			rr.ErrorCode = domain.ErrCodeTargetConflict
		}
		rr.ErrorMsg = fmt.Sprintf("创建输出目录失败：%v", err)
		return rr
	}

	out, err := sink.Open(ctx, sink.Options{
		Kind:            eff.Sink,
		Dir:             eff.OutputDir,
		BaseName:        eff.BaseName,
		MongoURI:        eff.MongoURI,
		MongoDB:         eff.MongoDB,
		MongoCollection: eff.MongoCollection,
	})
	if err != nil {
		rr.ErrorCode = domain.ErrCodeSinkFailed
		rr.ErrorMsg = fmt.Sprintf("打开 sink 失败：%v", err)
		return rr
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Warn("sink close failed", zap.String("sink", out.Location()), zap.Error(err))
		}
	}()

	workers := dispatch.EffectiveWorkers(eff.Concurrency, len(links))
	rr.Workers = workers
	if obs != nil {
		obs.OnPhaseDone(PhaseDispatch, map[string]any{
			"workers":     workers,
			"total_items": len(links),
			"sink":        out.Location(),
		}, 0)
	}

	extract := func(ctx context.Context, pageURL string) (domain.MovieRecord, error) {
		return p.FetchDetail(ctx, pageURL, client)
	}
	opts := dispatch.Options{Workers: eff.Concurrency, Logger: log}
	if obs != nil {
		opts.OnItemDone = obs.OnItemDone
	}
	res := dispatch.Run(ctx, links, opts, extract, out)
	rr.Items = res.Items

	// 外部取消（Ctrl-C）时，条目会以 request_failed 结束；这里额外标记为 run 级中断。
	if errors.Is(ctx.Err(), context.Canceled) {
		rr.ErrorCode = domain.ErrCodeCanceled
		rr.ErrorMsg = "已取消"
	}
	return rr
}
