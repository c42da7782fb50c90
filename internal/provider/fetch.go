package provider

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/John-Robertt/moviemeter/internal/domain"
	"github.com/John-Robertt/moviemeter/internal/infra/httpx"
)

// Get 抓取 u 并返回 body；任何网络层失败都包装为 *NetError（带分类标签）。
//
// 非 2xx 状态码视为失败（Kind=http_status，Err 为 *HTTPStatusError）。
func Get(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &NetError{Kind: domain.ErrCodeRequestFailed, URL: u, Err: err}
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, &NetError{Kind: classifyTransport(err), URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &NetError{
			Kind: domain.ErrCodeHTTPStatus,
			URL:  u,
			Err:  &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")},
		}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetError{Kind: classifyTransport(err), URL: u, Err: err}
	}
	return b, nil
}

// classifyTransport 把 http.Client 返回的错误归类。顺序有意义：
// url.Error 本身实现了 net.Error，所以重定向判断必须在 timeout 之前。
func classifyTransport(err error) string {
	if errors.Is(err, httpx.ErrTooManyRedirects) {
		return domain.ErrCodeTooManyRedirects
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrCodeTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.ErrCodeTimeout
	}

	var (
		dnsErr *net.DNSError
		opErr  *net.OpError
	)
	switch {
	case errors.As(err, &dnsErr),
		errors.As(err, &opErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return domain.ErrCodeConnection
	}
	return domain.ErrCodeRequestFailed
}
