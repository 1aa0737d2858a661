package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultLevel = "info"

// NewはJSONのzapロガーを返す。devなら開発用エンコーダ
func New(level string, dev bool) (*zap.Logger, error) {
	lv := zap.NewAtomicLevel()
	if err := lv.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		//不正・未設定ならinfo
		_ = lv.UnmarshalText([]byte(defaultLevel))
	}

	if dev {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = lv
		return cfg.Build()
	}

	cfg := zap.Config{
		Level:    lv,
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:    "message",
			TimeKey:       "timestamp",
			LevelKey:      "severity",
			CallerKey:     "caller",
			StacktraceKey: "stacktrace",
			EncodeTime:    zapcore.RFC3339NanoTimeEncoder,
			EncodeLevel:   zapcore.CapitalLevelEncoder,
			EncodeCaller:  zapcore.ShortCallerEncoder,
		},
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
	}
	return cfg.Build()
}

// gormなどprintf形式のロガーを受ける部品向け
type PrintfAdapter struct {
	logger *zap.SugaredLogger
}

func NewPrintfAdapter(l *zap.Logger) PrintfAdapter {
	if l == nil {
		l = zap.NewNop()
	}
	return PrintfAdapter{logger: l.Sugar()}
}

func (a PrintfAdapter) Printf(format string, args ...any) {
	a.logger.Infof(format, args...)
}
