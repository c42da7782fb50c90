package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoItems 表示列表页解析后没有任何详情页链接（通常意味着站点结构漂移）。
var ErrNoItems = errors.New("no items found")

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// NetError 是网络层失败的标签化错误。
// Kind 取值为 domain.ErrCode{Timeout,HTTPStatus,Connection,TooManyRedirects,RequestFailed}。
type NetError struct {
	Kind string
	URL  string
	Err  error
}

func (e *NetError) Error() string {
	if e == nil {
		return "network error"
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.URL, e.Err)
}

func (e *NetError) Unwrap() error { return e.Err }

// IncompleteError 表示详情页缺少必需字段；这类页面按约定静默跳过（不写入 sink）。
type IncompleteError struct {
	URL     string
	Missing []string
}

func (e *IncompleteError) Error() string {
	if e == nil {
		return "incomplete record"
	}
	return "incomplete record: missing " + strings.Join(e.Missing, ",")
}

// IsIncomplete 判断 err 是否为字段缺失。
func IsIncomplete(err error) bool {
	var e *IncompleteError
	return errors.As(err, &e)
}
