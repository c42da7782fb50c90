package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/John-Robertt/moviemeter/internal/domain"
)

// Code 把 provider 返回的错误映射为稳定的 error_code（见 domain.ErrCode*）。
// 无法识别的错误归为 unexpected。
func Code(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNoItems) {
		return domain.ErrCodeNoItems
	}
	if IsIncomplete(err) {
		return domain.ErrCodeIncomplete
	}

	var ne *NetError
	if errors.As(err, &ne) && ne.Kind != "" {
		return ne.Kind
	}

	var pe *Error
	if errors.As(err, &pe) && pe.Stage == "parse" {
		return domain.ErrCodeParseFailed
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		return domain.ErrCodeRequestFailed
	}
	return domain.ErrCodeUnexpected
}

// Humanize 为每类失败生成可读提示（每种网络失败有各自的文本）。
func Humanize(err error) string {
	if err == nil {
		return ""
	}

	switch Code(err) {
	case domain.ErrCodeTimeout:
		return fmt.Sprintf("请求超时：%v", err)
	case domain.ErrCodeHTTPStatus:
		var hs *HTTPStatusError
		if errors.As(err, &hs) {
			switch hs.StatusCode {
			case 403, 429:
				return fmt.Sprintf("HTTP 错误：站点返回 %d（可能触发反爬/限流）：%s", hs.StatusCode, hs.URL)
			case 404:
				return fmt.Sprintf("HTTP 错误：站点返回 404（页面不存在）：%s", hs.URL)
			}
			return fmt.Sprintf("HTTP 错误：站点返回 %d：%s", hs.StatusCode, hs.URL)
		}
		return fmt.Sprintf("HTTP 错误：%v", err)
	case domain.ErrCodeConnection:
		return fmt.Sprintf("连接错误：%v", err)
	case domain.ErrCodeTooManyRedirects:
		return fmt.Sprintf("重定向次数过多：%v", err)
	case domain.ErrCodeRequestFailed:
		return fmt.Sprintf("请求错误：%v", err)
	case domain.ErrCodeParseFailed:
		return fmt.Sprintf("解析失败（站点结构可能变化）：%v", err)
	case domain.ErrCodeNoItems:
		return "未找到任何电影（" + ErrNoItems.Error() + "）"
	case domain.ErrCodeIncomplete:
		return fmt.Sprintf("详情页字段不全：%v", err)
	default:
		return fmt.Sprintf("发生未预期的错误：%v", err)
	}
}
