package main

import (
	"strings"
	"testing"
)

func TestFormatErrorBox_CentersLines(t *testing.T) {
	got := formatErrorBox("no items", "check")
	lines := strings.Split(strings.Trim(got, "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("期望 6 行，实际 %d：%q", len(lines), got)
	}
	// 最长 8 列：边框 = 8 + 12。
	if lines[0] != strings.Repeat("*", 20) || lines[5] != lines[0] {
		t.Fatalf("边框不符合预期：%q", lines[0])
	}
	if lines[2] != "*     no items     *" {
		t.Fatalf("居中不符合预期：%q", lines[2])
	}
	if lines[3] != "*      check       *" {
		t.Fatalf("多出的一列应放在右侧：%q", lines[3])
	}
	for _, l := range lines {
		if len(l) != 20 {
			t.Fatalf("每行宽度应一致：%q", l)
		}
	}
}

func TestFormatErrorBox_WideRunes(t *testing.T) {
	got := formatErrorBox("未找到任何电影。", "x")
	lines := strings.Split(strings.Trim(got, "\n"), "\n")
	for _, l := range lines {
		if displayWidth(l) != displayWidth(lines[0]) {
			t.Fatalf("宽字符行未对齐：%q", got)
		}
	}
	if displayWidth("未找到") != 6 || displayWidth("ab") != 2 {
		t.Fatalf("displayWidth 计算不符合预期")
	}
}
