package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// ErrCodeInvalid 表示配置文件/环境变量/CLI 参数无法解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	FileName = "moviemeter.json"
	EnvFile  = ".env"

	DefaultProvider    = "imdb"
	DefaultOutputDir   = "output"
	DefaultBaseName    = "movies"
	DefaultSink        = "csv"
	DefaultConcurrency = 10
	MaxConcurrency     = 32
	DefaultTimeout     = 10 * time.Second
	DefaultJitter      = 200 * time.Millisecond
)

// 环境变量（进程环境优先于 .env 文件）。
const (
	EnvOutputDir       = "MOVIEMETER_OUTPUT_DIR"
	EnvConcurrency     = "MOVIEMETER_CONCURRENCY"
	EnvSink            = "MOVIEMETER_SINK"
	EnvProxyURL        = "MOVIEMETER_PROXY_URL"
	EnvMongoURI        = "MONGO_URI"
	EnvMongoDB         = "DB_NAME"
	EnvMongoCollection = "MONGO_COLLECTION"
)

// CLIArgs 保留“是否显式指定”的信息，保证 CLI 能覆盖配置（包括覆盖为默认值）。
type CLIArgs struct {
	OutputDir string

	Concurrency    int
	ConcurrencySet bool

	Sink    string
	SinkSet bool
}

// FileConfig 对应 moviemeter.json 的解析结构（全部字段可选）。
type FileConfig struct {
	OutputDir       string       `json:"output_dir"`
	BaseName        string       `json:"base_name"`
	Concurrency     int          `json:"concurrency"`
	ListingURL      string       `json:"listing_url"`
	Origin          string       `json:"origin"`
	UserAgent       string       `json:"user_agent"`
	TimeoutSeconds  int          `json:"timeout_seconds"`
	JitterMS        *int         `json:"jitter_ms"`
	Proxy           *ProxyConfig `json:"proxy"`
	Sink            string       `json:"sink"`
	MongoCollection string       `json:"mongo_collection"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EffectiveConfig 是合并并规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Provider string

	OutputDir string
	BaseName  string

	Concurrency int
	ListingURL  string
	Origin      string
	UserAgent   string
	Timeout     time.Duration
	Jitter      time.Duration
	ProxyURL    string

	Sink            string
	MongoURI        string
	MongoDB         string
	MongoCollection string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s：%q 无效：%v", e.Code, e.Path, e.Err)
	}
	return fmt.Sprintf("%s：%v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取 <cwd>/moviemeter.json 与 <cwd>/.env（均可选），并与 CLI 参数合并。
//
// 覆盖优先级（固定）：CLI > 环境变量 > .env > moviemeter.json > 内置默认。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	fc, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	envPath := filepath.Join(cwdAbs, EnvFile)
	dotenv, err := readDotEnv(envPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: envPath, Err: err}
	}
	env := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(dotenv[key])
	}

	eff, err := merge(cwdAbs, cli, fc, env)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: err}
	}
	return eff, nil
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, env func(string) string) (EffectiveConfig, error) {
	outDir := firstNonEmpty(cli.OutputDir, env(EnvOutputDir), fc.OutputDir, DefaultOutputDir)

	concurrency := DefaultConcurrency
	switch {
	case cli.ConcurrencySet:
		concurrency = cli.Concurrency
	case env(EnvConcurrency) != "":
		n, err := strconv.Atoi(env(EnvConcurrency))
		if err != nil {
			return EffectiveConfig{}, fmt.Errorf("%s 必须是整数：%q", EnvConcurrency, env(EnvConcurrency))
		}
		concurrency = n
	case fc.Concurrency != 0:
		concurrency = fc.Concurrency
	}
	// 超出 [1, MaxConcurrency] 截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}

	sinkKind := DefaultSink
	if cli.SinkSet {
		sinkKind = cli.Sink
	} else if v := firstNonEmpty(env(EnvSink), fc.Sink); v != "" {
		sinkKind = v
	}
	sinkKind = strings.ToLower(strings.TrimSpace(sinkKind))

	eff := EffectiveConfig{
		Provider:        DefaultProvider,
		OutputDir:       absCleanFrom(cwdAbs, outDir),
		BaseName:        firstNonEmpty(fc.BaseName, DefaultBaseName),
		Concurrency:     concurrency,
		ListingURL:      strings.TrimSpace(fc.ListingURL),
		Origin:          strings.TrimSpace(fc.Origin),
		UserAgent:       strings.TrimSpace(fc.UserAgent),
		Timeout:         DefaultTimeout,
		Jitter:          DefaultJitter,
		ProxyURL:        firstNonEmpty(env(EnvProxyURL), proxyURL(fc.Proxy)),
		Sink:            sinkKind,
		MongoURI:        env(EnvMongoURI),
		MongoDB:         env(EnvMongoDB),
		MongoCollection: firstNonEmpty(env(EnvMongoCollection), fc.MongoCollection),
	}
	if fc.TimeoutSeconds < 0 {
		return EffectiveConfig{}, fmt.Errorf("timeout_seconds 不能为负数：%d", fc.TimeoutSeconds)
	}
	if fc.TimeoutSeconds > 0 {
		eff.Timeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}
	if fc.JitterMS != nil {
		if *fc.JitterMS < 0 {
			return EffectiveConfig{}, fmt.Errorf("jitter_ms 不能为负数：%d", *fc.JitterMS)
		}
		eff.Jitter = time.Duration(*fc.JitterMS) * time.Millisecond
	}

	if strings.ContainsAny(eff.BaseName, `/\`) {
		return EffectiveConfig{}, fmt.Errorf("base_name 不能包含路径分隔符：%q", eff.BaseName)
	}
	for name, raw := range map[string]string{"listing_url": eff.ListingURL, "origin": eff.Origin} {
		if raw == "" {
			continue
		}
		if err := validateHTTPURL(raw); err != nil {
			return EffectiveConfig{}, fmt.Errorf("%s %w", name, err)
		}
	}
	if eff.ProxyURL != "" {
		u, err := url.Parse(eff.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, fmt.Errorf("proxy.url 无效：%q", eff.ProxyURL)
		}
	}

	switch eff.Sink {
	case "csv":
	case "mongo":
		if eff.MongoURI == "" || eff.MongoDB == "" {
			return EffectiveConfig{}, fmt.Errorf("sink=mongo 需要设置 %s 与 %s", EnvMongoURI, EnvMongoDB)
		}
	default:
		return EffectiveConfig{}, fmt.Errorf("sink 只能是 csv 或 mongo，实际是 %q", eff.Sink)
	}

	return eff, nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("无效：%q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("必须是 http/https：%q", raw)
	}
	return nil
}

func proxyURL(p *ProxyConfig) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.URL)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件；文件不存在不算错误。
func readFileConfig(path string) (FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, err
	}
	var fc FileConfig
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, err
	}
	return fc, nil
}

// readDotEnv 只解析 .env，不修改进程环境（便于测试，也避免隐式全局副作用）。
func readDotEnv(path string) (map[string]string, error) {
	m, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return m, nil
}
