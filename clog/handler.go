package clog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// clogHandler 封装底层 slog.Handler，承载动态级别调整。
type clogHandler struct {
	slog.Handler
	levelVar *slog.LevelVar
	closer   io.Closer
}

// newHandler 创建适配 clog 配置的 slog.Handler（内部使用）。
func newHandler(config *Config, options *options) (*clogHandler, error) {
	var w io.Writer
	var closer io.Closer
	switch strings.ToLower(config.Output) {
	case "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	case "buffer":
		// 测试专用
		if options.buffer == nil {
			return nil, fmt.Errorf("buffer output requires options.buffer to be set")
		}
		w = options.buffer
	default:
		f, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, err
		}
		w = f
		closer = f
	}

	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(toSlogLevel(level))

	opts := &slog.HandlerOptions{
		AddSource: config.AddSource,
		Level:     levelVar,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// 级别字符串统一为大写，Fatal 显式命名
			if a.Key == slog.LevelKey {
				lv := a.Value.Any().(slog.Level)
				var s string
				switch {
				case lv <= slog.LevelDebug:
					s = "DEBUG"
				case lv <= slog.LevelInfo:
					s = "INFO"
				case lv <= slog.LevelWarn:
					s = "WARN"
				case lv <= slog.LevelError:
					s = "ERROR"
				default:
					s = "FATAL"
				}
				a.Value = slog.StringValue(s)
			}

			// 时间戳统一为 ISO8601
			if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().Format(timeFormat))
			}

			// 调用位置裁剪为 caller="file.go:42" 形式
			if a.Key == slog.SourceKey {
				if source, ok := a.Value.Any().(*slog.Source); ok {
					fileName := source.File
					if config.SourceRoot != "" {
						if rel, err := filepath.Rel(config.SourceRoot, fileName); err == nil && !strings.HasPrefix(rel, "..") {
							fileName = rel
						}
					} else {
						fileName = filepath.Base(fileName)
					}
					return slog.String("caller", fmt.Sprintf("%s:%d", fileName, source.Line))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if strings.ToLower(config.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &clogHandler{
		Handler:  handler,
		levelVar: levelVar,
		closer:   closer,
	}, nil
}

// SetLevel 动态调整日志级别，通过 slog.LevelVar 对所有派生 Logger 生效。
func (h *clogHandler) SetLevel(level Level) error {
	h.levelVar.Set(toSlogLevel(level))
	return nil
}

// Flush 同步输出目标。文件输出时执行 Sync。
func (h *clogHandler) Flush() {
	if f, ok := h.closer.(*os.File); ok {
		_ = f.Sync()
	}
}
