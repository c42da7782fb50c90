package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/moviemeter/internal/app/run"
	"github.com/John-Robertt/moviemeter/internal/config"
	"github.com/John-Robertt/moviemeter/internal/domain"
	"github.com/John-Robertt/moviemeter/internal/infra/fsx"
	"github.com/John-Robertt/moviemeter/internal/infra/sink"
	"github.com/John-Robertt/moviemeter/internal/provider"
	"github.com/John-Robertt/moviemeter/internal/provider/imdb"
)

// 报告文件名（位于输出目录下）。
const reportFileName = "report.json"

func main() {
	args := os.Args[1:]
	if len(args) > 0 && isHelp(args[0]) {
		printUsage(os.Stdout)
		return
	}

	args = runCmdArgs(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		os.Exit(1)
	}

	code := runCmd(ctx, cwd, args, os.Stdout, os.Stderr)
	stop()
	if code != 0 {
		os.Exit(code)
	}
}

// runCmd 执行 run 子命令并返回退出码：0=完成（允许单条失败），1=run 级失败，2=参数错误。
func runCmd(ctx context.Context, cwd string, args []string, stdout, stderr *os.File) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage(stdout)
			return 0
		}
	}

	started := time.Now()
	// 无论成功与否都输出总耗时。
	defer printElapsed(stderr, started)

	ra, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
		printRunUsage(stderr)
		return 2
	}

	log := newLogger(stderr, ra.Verbose)
	defer func() { _ = log.Sync() }()

	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		OutputDir:      ra.OutputDir,
		Concurrency:    ra.Concurrency,
		ConcurrencySet: ra.ConcurrencySet,
		Sink:           ra.Sink,
		SinkSet:        ra.SinkSet,
	})
	if err != nil {
		rr := reportForConfigError(err)
		printErrorBox(stderr, "配置错误", rr.ErrorMsg)
		emitReport(stdout, stderr, rr)
		return 1
	}

	reg, err := provider.NewRegistry(imdb.Provider{
		Origin:    eff.Origin,
		Chart:     eff.ListingURL,
		JitterMax: eff.Jitter,
	})
	if err != nil {
		fmt.Fprintf(stderr, "初始化 provider registry 失败：%v\n", err)
		return 1
	}

	progressW, interactive := pickProgressWriter(stdout, stderr)
	var obs run.Observer
	if interactive {
		ui := newProgressUI(progressW)
		defer ui.Stop()
		obs = ui
	}

	rr := run.ExecuteWithObserver(ctx, eff, reg, log, obs)

	// 进入 dispatch 后才落盘 report.json；列表失败/为空时输出目录保持不变。
	if rr.Workers > 0 {
		if err := writeReportFile(eff.OutputDir, rr); err != nil {
			log.Warn("write report failed", zap.String("dir", eff.OutputDir), zap.Error(err))
			fmt.Fprintf(stderr, "写入 %s 失败：%v\n", reportFileName, err)
		}
	}

	if !rr.OK() {
		printErrorBox(stderr, runErrorLines(rr)...)
	}
	emitReport(stdout, stderr, rr)
	if interactive && rr.Workers > 0 {
		emitLocations(progressW, eff)
	}
	if rr.OK() {
		return 0
	}
	return 1
}

// runCmdArgs 去掉可选的 "run" 子命令：无参数、"run ..." 与直接给出 out_dir/参数 等价。
func runCmdArgs(args []string) []string {
	if len(args) > 0 && args[0] == "run" {
		return args[1:]
	}
	return args
}

type runArgs struct {
	OutputDir string

	Concurrency    int
	ConcurrencySet bool

	Sink    string
	SinkSet bool

	Verbose bool
}

func parseRunArgs(args []string) (runArgs, error) {
	ra := runArgs{}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--concurrency" || a == "-c":
			if i+1 >= len(args) {
				return runArgs{}, fmt.Errorf("%s 需要一个值", a)
			}
			i++
			if err := ra.setConcurrency(args[i]); err != nil {
				return runArgs{}, err
			}
		case strings.HasPrefix(a, "--concurrency="):
			if err := ra.setConcurrency(strings.TrimPrefix(a, "--concurrency=")); err != nil {
				return runArgs{}, err
			}
		case a == "--sink":
			if i+1 >= len(args) {
				return runArgs{}, fmt.Errorf("--sink 需要一个值")
			}
			i++
			ra.Sink = args[i]
			ra.SinkSet = true
		case strings.HasPrefix(a, "--sink="):
			ra.Sink = strings.TrimPrefix(a, "--sink=")
			ra.SinkSet = true
		case a == "--verbose" || a == "-v":
			ra.Verbose = true
		case strings.HasPrefix(a, "-"):
			return runArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if ra.OutputDir != "" {
				return runArgs{}, fmt.Errorf("重复的输出目录：%q 与 %q", ra.OutputDir, a)
			}
			ra.OutputDir = a
		}
	}

	if ra.SinkSet {
		switch ra.Sink {
		case "csv", "mongo":
			// ok
		case "":
			return runArgs{}, fmt.Errorf("--sink 不能为空")
		default:
			return runArgs{}, fmt.Errorf("--sink 只能是 csv 或 mongo，实际是 %q", ra.Sink)
		}
	}

	return ra, nil
}

func (ra *runArgs) setConcurrency(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("--concurrency 必须是整数，实际是 %q", v)
	}
	ra.Concurrency = n
	ra.ConcurrencySet = true
	return nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  moviemeter [run] [out_dir] [--concurrency N] [--sink csv|mongo] [--verbose]

命令：
  run    抓取热门电影榜单并写入输出（可省略：无参数或直接给出 out_dir/参数 时默认执行）

使用 "moviemeter run --help" 查看详细说明。
`)
}

func printRunUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  moviemeter run [out_dir] [--concurrency N] [--sink csv|mongo] [--verbose]

参数：
  out_dir            输出目录（默认 ./output；也可由 moviemeter.json 或 MOVIEMETER_OUTPUT_DIR 指定）
  -c, --concurrency  详情页并发上限（默认 10，范围 1..32）
  --sink             输出目标：csv|mongo（mongo 需要 MONGO_URI 与 DB_NAME）
  -v, --verbose      输出调试日志到 stderr
  -h, --help         显示帮助
`)
}

func emitReport(stdout, stderr *os.File, rr domain.RunReport) {
	if isTTY(stdout) {
		fmt.Fprintln(stdout, summaryLine(rr))
		if rr.Summary.Failed > 0 {
			for _, it := range rr.Items {
				if it.Status != domain.StatusFailed {
					continue
				}
				fmt.Fprintf(stderr, "%s %s: %s\n", it.URL, it.ErrorCode, it.ErrorMsg)
			}
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(stdout)
	_ = enc.Encode(rr)
	fmt.Fprintln(stderr, summaryLine(rr))
}

func summaryLine(rr domain.RunReport) string {
	return fmt.Sprintf("完成：links=%d written=%d skipped=%d failed=%d (%s)",
		rr.Summary.Links, rr.Summary.Written, rr.Summary.Skipped, rr.Summary.Failed, formatShortDuration(rr.Elapsed()),
	)
}

// runErrorLines 返回 run 级错误的提示框内容。
func runErrorLines(rr domain.RunReport) []string {
	switch rr.ErrorCode {
	case domain.ErrCodeNoItems:
		return []string{rr.ErrorMsg, "程序将退出，请检查列表页的解析规则是否仍然匹配。"}
	case domain.ErrCodeCanceled:
		return []string{"已取消", "已写入的记录会保留在输出中。"}
	default:
		return []string{rr.ErrorMsg}
	}
}

func reportForConfigError(err error) domain.RunReport {
	now := time.Now().UTC()
	code := config.Code(err)
	if code == "" {
		code = domain.ErrCodeConfigInvalid
	}
	rr := domain.RunReport{
		StartedAt:  now,
		FinishedAt: now,
		ErrorCode:  code,
		ErrorMsg:   err.Error(),
	}
	rr.Finalize()
	return rr
}

func writeReportFile(dir string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomic(dir, reportFileName, b)
}

func printElapsed(w io.Writer, started time.Time) {
	fmt.Fprintf(w, "总耗时：%d 秒\n", int(math.Round(time.Since(started).Seconds())))
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter(stdout, stderr *os.File) (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(stderr) {
		return stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(stdout) {
		return stdout, true
	}
	return nil, false
}

func emitLocations(w io.Writer, eff config.EffectiveConfig) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, "report: %s\n", filepath.Join(eff.OutputDir, reportFileName))
	if eff.Sink == "csv" {
		fmt.Fprintf(w, "csv: %s\n", sink.FilePath(eff.OutputDir, eff.BaseName))
	}
}
