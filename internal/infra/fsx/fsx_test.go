package fsx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic_SuccessAndNoTempLeft(t *testing.T) {
	dir := t.TempDir()

	if err := WriteFileAtomic(dir, "a.txt", []byte("hello")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	// 覆盖写
	if err := WriteFileAtomic(dir, "a.txt", []byte("world")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != "world" {
		t.Fatalf("内容不一致：%q", string(b))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".a.txt.tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}

func TestWriteFileAtomic_RenameFail_CleanupTemp(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return os.ErrPermission
	}
	defer func() { renameFunc = old }()

	if err := WriteFileAtomic(dir, "a.txt", []byte("hello")); err == nil {
		t.Fatalf("期望失败，但得到 nil")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".a.txt.tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
		if e.Name() == "a.txt" {
			t.Fatalf("不应写出最终文件：%q", e.Name())
		}
	}
}

func TestEnsureDir_CreateAndConflict(t *testing.T) {
	root := t.TempDir()

	dir := filepath.Join(root, "a", "b")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("已存在目录应视为满足：%v", err)
	}

	file := filepath.Join(root, "f")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	if err := EnsureDir(file); !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
}

func TestOpenAppend_AppendsAndRejectsDir(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out.csv")

	for _, s := range []string{"a\n", "b\n"} {
		f, err := OpenAppend(p)
		if err != nil {
			t.Fatalf("OpenAppend 失败：%v", err)
		}
		if _, err := f.WriteString(s); err != nil {
			t.Fatalf("写入失败：%v", err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("关闭失败：%v", err)
		}
	}
	b, _ := os.ReadFile(p)
	if string(b) != "a\nb\n" {
		t.Fatalf("追加内容不符合预期：%q", string(b))
	}

	if _, err := OpenAppend(dir); !IsPathTypeConflict(err) {
		t.Fatalf("目录应返回 PathTypeConflictError，实际：%v", err)
	}
}
