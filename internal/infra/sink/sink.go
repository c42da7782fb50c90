// Package sink 提供记录的追加型落地目标。
//
// 每个 sink 独占自己的底层资源（文件 / collection），并且只暴露一个同步的 Append：
// 并发安全是 sink 接口的性质，而不是调用方持有的全局锁。
package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/moviemeter/internal/domain"
)

const (
	KindCSV   = "csv"
	KindMongo = "mongo"
)

var (
	// ErrClosed 表示 sink 已关闭后仍被调用 Append。
	ErrClosed = errors.New("sink: closed")
	// ErrIncomplete 表示试图写入字段不全的记录（sink 拒绝写入，保证不出现残缺行）。
	ErrIncomplete = errors.New("sink: incomplete record")
)

// Sink 是 run 层持有的落地目标。
type Sink interface {
	Append(ctx context.Context, rec domain.MovieRecord) error
	Close() error
	// Location 用于 report/日志：CSV 为文件路径，Mongo 为 db.collection。
	Location() string
}

// Options 描述要打开的 sink；Kind 为空等同 csv。
type Options struct {
	Kind string

	Dir      string
	BaseName string

	MongoURI        string
	MongoDB         string
	MongoCollection string
}

// Open 按 Kind 打开 sink。
func Open(ctx context.Context, opts Options) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case "", KindCSV:
		s, err := NewCSV(opts.Dir, opts.BaseName)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindMongo:
		s, err := NewMongo(ctx, opts.MongoURI, opts.MongoDB, opts.MongoCollection)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("未知 sink：%q", opts.Kind)
	}
}

func checkComplete(rec domain.MovieRecord) error {
	if missing := rec.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ","))
	}
	return nil
}
