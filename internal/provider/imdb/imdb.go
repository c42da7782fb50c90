package imdb

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/moviemeter/internal/domain"
	providerx "github.com/John-Robertt/moviemeter/internal/provider"
)

const (
	DefaultOrigin     = "https://imdb.com"
	DefaultListingURL = "https://www.imdb.com/chart/moviemeter/?ref_=nv_mv_mpm"
	// DefaultJitterMax 是详情页请求前随机等待的上限（均匀分布 [0, max)）。
	DefaultJitterMax = 200 * time.Millisecond
)

// 站点 markup 定位点。IMDb 的 class 是构建产物，改版后需要同步更新这里。
const (
	selListingItem = "div.sc-b189961a-0.hBZnfJ.cli-children"

	selDetailContainer = "div.sc-491663c0-3.bdjVSf"
	selTitle           = "span.hero__primary-text"
	selReleaseDate     = "a.ipc-link.ipc-link--baseAlt.ipc-link--inherit-color"
	selPosition        = "div.sc-5f7fb5b4-1.fTREEx"
	selRating          = "span.sc-bde20123-1.cMEQkK"
	selSummary         = "span.sc-eb5317c9-1.bpVsNr"
)

// Provider 实现 IMDb “最受欢迎电影”榜单的列表页与详情页抓取。
//
// 零值可用：Origin/Chart 为空时使用默认值；JitterMax 为 0 表示不等待（测试用），
// 需要默认 jitter 时请用 New。
type Provider struct {
	// Origin 会拼接在列表页的相对链接前。
	Origin string
	// Chart 是列表页 URL。
	Chart string
	// JitterMax 是每个详情页请求前随机等待的上限，用于打散对站点的突发请求。
	JitterMax time.Duration
}

// New 返回带默认 jitter 的 Provider。
func New(origin, chart string) Provider {
	return Provider{Origin: origin, Chart: chart, JitterMax: DefaultJitterMax}
}

func (Provider) Name() string { return "imdb" }

func (p Provider) origin() string {
	o := strings.TrimSpace(p.Origin)
	if o == "" {
		return DefaultOrigin
	}
	return strings.TrimRight(o, "/")
}

func (p Provider) ListingURL() string {
	if u := strings.TrimSpace(p.Chart); u != "" {
		return u
	}
	return DefaultListingURL
}

// FetchListing 抓取列表页并返回全部详情页绝对 URL（保持页面顺序，不去重）。
func (p Provider) FetchListing(ctx context.Context, c *http.Client) ([]string, error) {
	b, err := providerx.Get(ctx, c, p.ListingURL())
	if err != nil {
		return nil, &providerx.Error{Provider: p.Name(), Stage: "fetch", Err: err}
	}
	return ParseListing(b, p.origin())
}

// FetchDetail 等待随机 jitter 后抓取详情页，并解析出完整记录。
func (p Provider) FetchDetail(ctx context.Context, pageURL string, c *http.Client) (domain.MovieRecord, error) {
	if strings.TrimSpace(pageURL) == "" {
		return domain.MovieRecord{}, errors.New("pageURL 不能为空")
	}
	if err := sleepJitter(ctx, p.JitterMax); err != nil {
		return domain.MovieRecord{}, &providerx.Error{Provider: p.Name(), Stage: "fetch", Err: err}
	}

	b, err := providerx.Get(ctx, c, pageURL)
	if err != nil {
		return domain.MovieRecord{}, &providerx.Error{Provider: p.Name(), Stage: "fetch", Err: err}
	}

	rec, err := ParseDetail(b)
	if err != nil {
		var ie *providerx.IncompleteError
		if errors.As(err, &ie) {
			ie.URL = pageURL
			return domain.MovieRecord{}, ie
		}
		return domain.MovieRecord{}, &providerx.Error{Provider: p.Name(), Stage: "parse", Err: err}
	}
	return rec, nil
}

// ParseListing 从列表页 HTML 中提取详情页链接；一个都没有时返回 providerx.ErrNoItems。
func ParseListing(html []byte, origin string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &providerx.Error{Provider: "imdb", Stage: "parse", Err: err}
	}

	var links []string
	doc.Find(selListingItem).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Find("a").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		links = append(links, resolveURL(origin+"/", href))
	})
	if len(links) == 0 {
		return nil, providerx.ErrNoItems
	}
	return links, nil
}

// ParseDetail 把详情页 HTML 解析为 MovieRecord；任一字段缺失返回 *providerx.IncompleteError。
//
// 纯函数：相同输入 => 相同输出。
func ParseDetail(html []byte) (domain.MovieRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.MovieRecord{}, err
	}

	var rec domain.MovieRecord
	// summary 在容器外；但容器缺失时整页视为不可用（与字段缺失同样处理）。
	if box := doc.Find(selDetailContainer).First(); box.Length() > 0 {
		rec.Title = text(box.Find("h1").First().Find(selTitle))
		rec.ReleaseDate = text(box.Find(selReleaseDate))
		rec.Position = text(box.Find(selPosition))
		rec.Rating = text(box.Find(selRating))
		rec.Summary = text(doc.Find(selSummary))
	}

	if missing := rec.Missing(); len(missing) > 0 {
		return domain.MovieRecord{}, &providerx.IncompleteError{Missing: missing}
	}
	return rec, nil
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.First().Text())
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return base + strings.TrimLeft(href, "/")
	}
	ru, err := url.Parse(href)
	if err != nil {
		return base + strings.TrimLeft(href, "/")
	}
	return bu.ResolveReference(ru).String()
}

func sleepJitter(ctx context.Context, max time.Duration) error {
	if max <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(rand.N(max))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
