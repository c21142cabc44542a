package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// TimestampFormat 日志时间格式: yy-mm-dd HH:MM:ss
const TimestampFormat = "06-01-02 15:04:05"

var (
	// Logger 全局日志实例，Init 之前为 nil
	Logger *logrus.Logger
	// currentLogFile 当前日志文件路径
	currentLogFile string
	// fileWriter 当前文件输出，重新 Init 时关闭
	fileWriter *lumberjack.Logger
	logMu      sync.Mutex
)

// Config 日志配置
type Config struct {
	Level      string    // 日志级别: debug, info, warn, error
	OutputFile string    // 日志文件路径（可选，为空则只输出到控制台）
	MaxSize    int       // 日志文件最大大小（MB）
	MaxBackups int       // 保留的旧日志文件数量
	MaxAge     int       // 保留旧日志文件的天数
	Compress   bool      // 是否压缩旧日志文件
	JSON       bool      // 使用 JSON 格式（便于采集）
	Console    io.Writer // 控制台输出，nil 时为 os.Stdout
}

func (c Config) formatter() logrus.Formatter {
	if c.JSON {
		return &logrus.JSONFormatter{TimestampFormat: TimestampFormat}
	}
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: TimestampFormat,
		ForceColors:     c.Console == nil,
	}
}

// Init 初始化日志系统，同时配置 logrus 全局实例
// 库代码通过 logrus.WithField 创建的 entry 也会写到同样的输出
func Init(config Config) error {
	logMu.Lock()
	defer logMu.Unlock()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	console := config.Console
	if console == nil {
		console = os.Stdout
	}
	writers := []io.Writer{console}

	if fileWriter != nil {
		_ = fileWriter.Close()
		fileWriter = nil
		currentLogFile = ""
	}
	if config.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0o755); err != nil {
			return err
		}
		// 配置日志轮转
		fileWriter = &lumberjack.Logger{
			Filename:   config.OutputFile,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		}
		writers = append(writers, fileWriter)
		currentLogFile = config.OutputFile
	}
	out := io.MultiWriter(writers...)

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(config.formatter())
	logger.SetOutput(out)

	logrus.SetOutput(out)
	logrus.SetLevel(level)
	logrus.SetFormatter(config.formatter())

	Logger = logger
	return nil
}

// Close 关闭文件输出
func Close() error {
	logMu.Lock()
	defer logMu.Unlock()
	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	currentLogFile = ""
	return err
}

// Component 给某个组件用的 logger
func Component(name string) logrus.FieldLogger {
	return WithField("component", name)
}

// Debugf 记录格式化的 DEBUG 级别日志
func Debugf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Debugf(format, args...)
	}
}

// Info 记录 INFO 级别日志
func Info(args ...interface{}) {
	if Logger != nil {
		Logger.Info(args...)
	}
}

// Infof 记录格式化的 INFO 级别日志
func Infof(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Infof(format, args...)
	}
}

// Warnf 记录格式化的 WARN 级别日志
func Warnf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Warnf(format, args...)
	}
}

// Errorf 记录格式化的 ERROR 级别日志
func Errorf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Errorf(format, args...)
	}
}

// WithField 添加字段到日志上下文
func WithField(key string, value interface{}) *logrus.Entry {
	if Logger != nil {
		return Logger.WithField(key, value)
	}
	return logrus.WithField(key, value)
}

// GetCurrentLogFile 获取当前日志文件路径
func GetCurrentLogFile() string {
	logMu.Lock()
	defer logMu.Unlock()
	return currentLogFile
}
