// Package log 封装了进程级的 zap SugaredLogger。
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileName 是配置了 output_path 时写入的日志文件名。
const FileName = "argumentor.log"

var current atomic.Pointer[zap.SugaredLogger]

func init() {
	// 未调用 Init 时（例如单元测试）不输出任何日志
	current.Store(zap.NewNop().Sugar())
}

func sugar() *zap.SugaredLogger {
	return current.Load()
}

// New 按配置构建 logger。format 为 console 时使用彩色的开发格式，其余情况输出 JSON。
func New(level, format, outputPath string) (*zap.Logger, error) {
	atomicLevel := zap.NewAtomicLevel()
	if err := atomicLevel.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		atomicLevel.SetLevel(zap.InfoLevel)
	}

	var zapConfig zap.Config
	if format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zapConfig.Level = atomicLevel
	zapConfig.OutputPaths = []string{"stdout"}

	if outputPath != "" {
		if err := os.MkdirAll(outputPath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", outputPath, err)
		}
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, filepath.Join(outputPath, FileName))
	}

	return zapConfig.Build(zap.AddCallerSkip(1))
}

// Init 初始化全局 logger，配置无效时 panic。
func Init(level, format, outputPath string) {
	logger, err := New(level, format, outputPath)
	if err != nil {
		panic(err)
	}
	current.Store(logger.Sugar())
}

// Replace 替换全局 logger，返回恢复原 logger 的函数。
func Replace(logger *zap.Logger) func() {
	prev := current.Swap(logger.Sugar())
	return func() { current.Store(prev) }
}

// With 返回携带固定字段的子 logger，例如 sessionId。
func With(keysAndValues ...interface{}) *zap.SugaredLogger {
	return sugar().Desugar().WithOptions(zap.AddCallerSkip(-1)).Sugar().With(keysAndValues...)
}

// Info 记录一条 info 级别的日志
func Info(msg string) {
	sugar().Info(msg)
}

func Infof(template string, args ...interface{}) {
	sugar().Infof(template, args...)
}

// Infow 使用键值对记录一条 info 级别的结构化日志。
func Infow(msg string, keysAndValues ...interface{}) {
	sugar().Infow(msg, keysAndValues...)
}

func Warnf(template string, args ...interface{}) {
	sugar().Warnf(template, args...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	sugar().Warnw(msg, keysAndValues...)
}

// Error 记录一条 error 级别的日志，并附带 error 信息
func Error(msg string, err error) {
	sugar().Errorw(msg, "error", err)
}

func Errorf(template string, args ...interface{}) {
	sugar().Errorf(template, args...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	sugar().Errorw(msg, keysAndValues...)
}

// Fatal 记录一条 fatal 级别的日志，然后退出程序
func Fatal(msg string, err error) {
	sugar().Fatalw(msg, "error", err)
}

func Fatalf(template string, args ...interface{}) {
	sugar().Fatalf(template, args...)
}

// Sync 将缓冲区中的日志写入底层 Writer。
func Sync() {
	_ = sugar().Sync()
}
