// server/internal/logger/logger.go
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log      *zap.Logger
	fallback sync.Once
)

// Init khởi tạo logger toàn cục. env là "dev" hoặc "prod".
func Init(service, env, level string) {
	var cfg zap.Config
	if env == "dev" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build(zap.AddCaller())
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	log = l.With(zap.String("service", service))

	log.Info("logger initialized", zap.String("env", env), zap.String("level", level))
}

// L trả về logger đã khởi tạo, hoặc một logger dev mặc định.
func L() *zap.Logger {
	fallback.Do(func() {
		if log == nil {
			Init("unknown", "dev", "info")
		}
	})
	return log
}

// S trả về SugaredLogger cho log dạng printf.
func S() *zap.SugaredLogger {
	return L().Sugar()
}

// Sync flush các log còn trong buffer (defer trong main()).
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
