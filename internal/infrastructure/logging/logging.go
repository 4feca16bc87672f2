package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

// Options はロガー設定
type Options struct {
	Level     string // debug, info, warn, error
	Format    string // text または json
	File      string // 空なら標準出力
	MaxSizeMB int
}

// WithRequestID はリクエストIDをcontextに格納
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID はcontextからリクエストIDを取り出す
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// requestIDHook はentry.Contextのリクエストidをrequest_idフィールドに写す
type requestIDHook struct{}

func (requestIDHook) Levels() []log.Level { return log.AllLevels }

func (requestIDHook) Fire(entry *log.Entry) error {
	if id := RequestID(entry.Context); id != "" {
		if _, ok := entry.Data["request_id"]; !ok {
			entry.Data["request_id"] = id
		}
	}
	return nil
}

// LogFormatter はリクエストID付きの1行テキスト形式
//
// 例: [2026-10-18 20:14:04] [20261018-201404-a1b2c3d4] [info ] [orchestrator.go:88] message handled | route=TEMPLATE
type LogFormatter struct{}

// Format は1件のログを整形
func (m *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	var buffer *bytes.Buffer
	if entry.Buffer != nil {
		buffer = entry.Buffer
	} else {
		buffer = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05")
	message := strings.TrimRight(entry.Message, "\r\n")

	reqID := "--------"
	if id, ok := entry.Data["request_id"].(string); ok && id != "" {
		reqID = id
	}

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}
	levelStr := fmt.Sprintf("%-5s", level)

	var formatted string
	if entry.Caller != nil {
		formatted = fmt.Sprintf("[%s] [%s] [%s] [%s:%d] %s", timestamp, reqID, levelStr, filepath.Base(entry.Caller.File), entry.Caller.Line, message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] [%s] %s", timestamp, reqID, levelStr, message)
	}

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != "request_id" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	if len(keys) > 0 {
		formatted += " |"
		for i, k := range keys {
			if i > 0 {
				formatted += ","
			}
			formatted += fmt.Sprintf(" %s=%v", k, entry.Data[k])
		}
	}
	formatted += "\n"

	buffer.WriteString(formatted)
	return buffer.Bytes(), nil
}

var (
	writerMu       sync.Mutex
	logWriter      *lumberjack.Logger
	ginInfoWriter  *io.PipeWriter
	ginErrorWriter *io.PipeWriter
)

// Setup はlogrusの標準ロガーとginの出力先を構成
//
// 複数回呼んでよい。前回の出力先（ローテータとginへのパイプ）は閉じてから差し替える。
// 戻り値のio.Closerはこれらの出力先を全て閉じ、標準出力に戻す。
func Setup(opts Options) (io.Closer, error) {
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	var formatter log.Formatter
	switch strings.ToLower(opts.Format) {
	case "json":
		formatter = &log.JSONFormatter{}
	case "", "text":
		formatter = &LogFormatter{}
	default:
		return nil, fmt.Errorf("logging: unknown format %q", opts.Format)
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("logging: failed to create log directory: %w", err)
		}
	}

	writerMu.Lock()
	defer writerMu.Unlock()

	closeLogOutputsLocked()

	logger := log.StandardLogger()
	logger.SetLevel(level)
	logger.SetReportCaller(true)
	logger.ReplaceHooks(make(log.LevelHooks))
	logger.AddHook(requestIDHook{})
	logger.SetFormatter(formatter)

	if opts.File != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		logWriter = &lumberjack.Logger{
			Filename: opts.File,
			MaxSize:  maxSize,
		}
		logger.SetOutput(logWriter)
	} else {
		logger.SetOutput(os.Stdout)
	}

	ginInfoWriter = logger.Writer()
	gin.DefaultWriter = ginInfoWriter
	ginErrorWriter = logger.WriterLevel(log.ErrorLevel)
	gin.DefaultErrorWriter = ginErrorWriter

	return closerFunc(closeLogOutputs), nil
}

// closeLogOutputs はSetupで開いた出力先を閉じる
func closeLogOutputs() error {
	writerMu.Lock()
	defer writerMu.Unlock()

	closeLogOutputsLocked()
	return nil
}

func closeLogOutputsLocked() {
	if ginInfoWriter != nil {
		_ = ginInfoWriter.Close()
		ginInfoWriter = nil
		gin.DefaultWriter = os.Stdout
	}
	if ginErrorWriter != nil {
		_ = ginErrorWriter.Close()
		ginErrorWriter = nil
		gin.DefaultErrorWriter = os.Stderr
	}
	if logWriter != nil {
		log.SetOutput(os.Stdout)
		_ = logWriter.Close()
		logWriter = nil
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
