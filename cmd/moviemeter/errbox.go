package main

import (
	"fmt"
	"io"
	"strings"
	"unicode"
)

// printErrorBox 把若干行错误提示居中输出在一个星号框内。
func printErrorBox(w io.Writer, lines ...string) {
	fmt.Fprint(w, formatErrorBox(lines...))
}

func formatErrorBox(lines ...string) string {
	widest := 0
	for _, l := range lines {
		if n := displayWidth(l); n > widest {
			widest = n
		}
	}
	// 最长一行两侧各留 5 列空白。
	inner := widest + 10
	border := strings.Repeat("*", inner+2)
	blank := "*" + strings.Repeat(" ", inner) + "*"

	var b strings.Builder
	b.WriteString("\n" + border + "\n")
	b.WriteString(blank + "\n")
	for _, l := range lines {
		pad := inner - displayWidth(l)
		before := pad / 2
		after := pad - before
		b.WriteString("*" + strings.Repeat(" ", before) + l + strings.Repeat(" ", after) + "*\n")
	}
	b.WriteString(blank + "\n")
	b.WriteString(border + "\n\n")
	return b.String()
}

// displayWidth 估算终端显示宽度：CJK 与全角字符按 2 列计。
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch {
		case r < 0x20:
		case unicode.Is(unicode.Han, r),
			unicode.Is(unicode.Hiragana, r),
			unicode.Is(unicode.Katakana, r),
			unicode.Is(unicode.Hangul, r),
			r >= 0x3000 && r <= 0x303F,
			r >= 0xFF00 && r <= 0xFF60:
			n += 2
		default:
			n++
		}
	}
	return n
}
