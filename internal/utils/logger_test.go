package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestInitLogger(t *testing.T) {
	tempDir := t.TempDir()

	config := LogConfig{
		Level:      "debug",
		LogDir:     tempDir,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   false,
		NoColor:    true,
	}

	if err := InitLogger(config); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	Info("测试信息日志")
	Warn("测试警告日志")
	Errorf("测试错误日志: %d", 1)

	time.Sleep(100 * time.Millisecond)

	mainLog, err := os.ReadFile(filepath.Join(tempDir, "sitemirror.log"))
	if err != nil {
		t.Fatalf("读取主日志失败: %v", err)
	}
	if !strings.Contains(string(mainLog), "测试信息日志") {
		t.Error("主日志应包含信息日志")
	}

	errLog, err := os.ReadFile(filepath.Join(tempDir, "sitemirror_error.log"))
	if err != nil {
		t.Fatalf("读取错误日志失败: %v", err)
	}
	if strings.Contains(string(errLog), "测试信息日志") {
		t.Error("错误日志不应包含信息日志")
	}
	if !strings.Contains(string(errLog), "测试错误日志") {
		t.Error("错误日志应包含错误日志")
	}
}

func TestInitLogger_ConsoleOnly(t *testing.T) {
	if err := InitLogger(LogConfig{Level: "bogus"}); err != nil {
		t.Fatalf("仅控制台模式不应报错: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("无效级别应回退到info, 得到 %s", zerolog.GlobalLevel())
	}
}

func TestLevelSplitWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	w := &LevelSplitWriter{Out: &out, Err: &errOut, ErrLevel: zerolog.WarnLevel}

	logger := zerolog.New(w)
	logger.Info().Msg("进度")
	logger.Warn().Msg("失败")
	logger.Error().Msg("错误")

	if !strings.Contains(out.String(), "进度") || strings.Contains(out.String(), "失败") {
		t.Errorf("stdout内容错误: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "失败") || !strings.Contains(errOut.String(), "错误") {
		t.Errorf("stderr内容错误: %q", errOut.String())
	}
}

func TestFilteredWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &FilteredWriter{Writer: &buf, MinLevel: zerolog.ErrorLevel}

	logger := zerolog.New(w)
	logger.Info().Msg("信息")
	logger.Error().Msg("错误")

	if strings.Contains(buf.String(), "信息") {
		t.Error("低于MinLevel的日志不应写入")
	}
	if !strings.Contains(buf.String(), "错误") {
		t.Error("MinLevel及以上的日志应写入")
	}
}

func TestDefaultLogConfig(t *testing.T) {
	config := DefaultLogConfig()

	if config.Level != "info" {
		t.Errorf("默认日志级别错误: 期望 'info', 得到 '%s'", config.Level)
	}
	if config.LogDir != "logs" {
		t.Errorf("默认日志目录错误: 期望 'logs', 得到 '%s'", config.LogDir)
	}
	if config.MaxSize != 10 || config.MaxBackups != 3 || config.MaxAge != 28 {
		t.Errorf("默认轮转参数错误: %+v", config)
	}
	if !config.Compress {
		t.Error("默认应该启用压缩")
	}
}
