package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout 是单个请求的总超时（含连接、TLS、读 body）。
	DefaultTimeout = 10 * time.Second
	// DefaultMaxRedirects 与 net/http 的内置上限一致，但超出时返回可识别的 ErrTooManyRedirects。
	DefaultMaxRedirects = 10
	// DefaultUserAgent 固定桌面浏览器 UA；不做随机化。
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_10_1) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/39.0.2171.95 Safari/537.36"
)

// ErrTooManyRedirects 由 CheckRedirect 返回；http.Client 会把它包在 *url.Error 里。
var ErrTooManyRedirects = errors.New("too many redirects")

// Options 描述 client 的网络策略；零值即默认策略。
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRedirects int
	ProxyURL     string
}

// Transport 为每个请求补上固定 UA。
//
// 不做重试：任何失败都原样交给上层分类。
type Transport struct {
	Base      http.RoundTripper
	UserAgent string
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}
	if req.Header.Get("User-Agent") != "" || t.UserAgent == "" {
		return t.Base.RoundTrip(req)
	}
	// Clone 避免在 RoundTripper 内部“污染”调用方的 request。
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.UserAgent)
	return t.Base.RoundTrip(r)
}

// NewClient 构造用于列表页/详情页抓取的 HTTP client。
//
// 规则：
// - 每个请求带固定 UA
// - 总超时默认 10s（client 级别，无 dispatcher 级超时）
// - 重定向超过上限返回 ErrTooManyRedirects
// - 默认遵循 HTTP_PROXY/HTTPS_PROXY/NO_PROXY；ProxyURL 非空时改走该代理
func NewClient(opts Options) (*http.Client, error) {
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}

	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConnsPerHost:   32,
	}
	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("proxy url 无效：%q", p)
		}
		base.Proxy = http.ProxyURL(u)
	}

	return &http.Client{
		Transport: &Transport{Base: base, UserAgent: ua},
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("%w (%d)", ErrTooManyRedirects, len(via))
			}
			return nil
		},
	}, nil
}
