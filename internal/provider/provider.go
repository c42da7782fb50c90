package provider

import (
	"context"
	"net/http"

	"github.com/John-Robertt/moviemeter/internal/domain"
)

// Provider 把“站点 markup 变化”限制在 provider 包内部；核心流程只依赖统一接口与稳定的 MovieRecord。
//
// 约束：
// - FetchListing 返回详情页的绝对 URL；列表为空必须返回 ErrNoItems（而不是空切片 + nil）
// - FetchDetail 不做缓存、不做重试；字段不全返回 *IncompleteError
// - 网络错误必须是 *NetError（由 Get 统一打标签），上层据此分类提示
type Provider interface {
	Name() string
	ListingURL() string
	FetchListing(ctx context.Context, c *http.Client) ([]string, error)
	FetchDetail(ctx context.Context, pageURL string, c *http.Client) (domain.MovieRecord, error)
}

// Error 是 provider 阶段的可追溯错误（fetch / parse）。
type Error struct {
	Provider string // provider name（小写）
	Stage    string // "fetch" 或 "parse"
	Err      error
}

func (e *Error) Error() string {
	return "provider=" + e.Provider + " stage=" + e.Stage + ": " + errString(e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func errString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}
