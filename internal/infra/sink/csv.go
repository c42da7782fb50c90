package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/John-Robertt/moviemeter/internal/domain"
	"github.com/John-Robertt/moviemeter/internal/infra/fsx"
)

// DefaultBaseName 是输出文件的固定基础名（最终文件为 <dir>/movies.csv）。
const DefaultBaseName = "movies"

// CSV 是追加型 CSV 文件 sink。
//
// 每次 Append 在锁内完成“打开(追加) -> 写一行 -> flush -> 关闭”，
// 因此两个 worker 同时完成时也不会交错出半行。文件不存在则创建，已存在则追加。
type CSV struct {
	path string

	mu     sync.Mutex
	closed bool
}

// NewCSV 返回写入 <dir>/<baseName>.csv 的 sink；不会创建目录，也不会预先创建文件。
func NewCSV(dir, baseName string) (*CSV, error) {
	if err := validateBaseName(baseName); err != nil {
		return nil, err
	}
	return &CSV{path: FilePath(dir, baseName)}, nil
}

// FilePath 返回 <dir>/<baseName>.csv；baseName 为空时使用 DefaultBaseName。
func FilePath(dir, baseName string) string {
	baseName = strings.TrimSpace(baseName)
	if baseName == "" {
		baseName = DefaultBaseName
	}
	return filepath.Join(filepath.Clean(dir), baseName+".csv")
}

func validateBaseName(baseName string) error {
	if strings.ContainsAny(baseName, `/\`) {
		return fmt.Errorf("输出文件名不能包含路径分隔符：%q", baseName)
	}
	return nil
}

func (s *CSV) Location() string { return s.path }

func (s *CSV) Append(ctx context.Context, rec domain.MovieRecord) error {
	if err := checkComplete(rec); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	f, err := fsx.OpenAppend(s.path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(rec.Row()); err != nil {
		_ = f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Close 之后的 Append 返回 ErrClosed；重复 Close 无副作用。
func (s *CSV) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
