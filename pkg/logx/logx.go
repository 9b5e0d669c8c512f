// Package logx 构建组件使用的 zerolog.Logger。
package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New 创建 Logger。level 无法解析时回退到 info；json=false 输出人类可读格式。
func New(level string, json bool) zerolog.Logger {
	return NewWriter(os.Stderr, level, json)
}

func NewWriter(w io.Writer, level string, json bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if !json {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Component 派生带 component 字段的子 Logger。
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
