package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/RecoveryAshes/SiteMirror/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("文件值覆盖默认值", func(t *testing.T) {
		path := writeConfig(t, `
crawl:
  delay_ms: 250
  max_workers: 6
headers:
  X-Team: mirror
logging:
  level: debug
resource:
  max_workers_limit: 16
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}

		if cfg.Crawl.DelayMS != 250 || cfg.Crawl.MaxWorkers != 6 {
			t.Errorf("crawl = %+v", cfg.Crawl)
		}
		if cfg.Crawl.QueueCapacity != 1000 || cfg.Crawl.StateDir != ".sitemirror" || cfg.Crawl.RequestTimeout != 30 {
			t.Errorf("未设置的crawl字段应取默认值: %+v", cfg.Crawl)
		}
		if cfg.Headers["x-team"] != "mirror" {
			t.Errorf("headers = %v", cfg.Headers)
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("logging.level = %q", cfg.Logging.Level)
		}
		if cfg.Resource.MaxWorkersLimit != 16 || cfg.Resource.SafetyReserveMemory != 1024 {
			t.Errorf("resource = %+v", cfg.Resource)
		}
	})

	t.Run("非法配置值", func(t *testing.T) {
		path := writeConfig(t, "crawl:\n  queue_capacity: 0\n")
		_, err := LoadConfig(path)
		var ce *models.ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("期望ConfigError, 得到 %v", err)
		}
	})

	t.Run("指定的文件不存在", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		var ce *models.ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("期望ConfigError, 得到 %v", err)
		}
	})

	t.Run("YAML格式错误", func(t *testing.T) {
		path := writeConfig(t, "crawl: [unterminated\n")
		if _, err := LoadConfig(path); err == nil {
			t.Error("期望解析错误")
		}
	})
}

func TestConfig_Conversions(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "logging:\n  log_dir: /var/log/sitemirror\n"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	lc := cfg.LogConfig()
	if lc.LogDir != "/var/log/sitemirror" || lc.Level != cfg.Logging.Level || lc.MaxSize != cfg.Logging.Rotation.MaxSize {
		t.Errorf("LogConfig() = %+v", lc)
	}

	rc := cfg.ResourceMonitorConfig()
	if rc.SafetyReserveMemory != 1024*1024*1024 || rc.WorkerMemoryUsage != 8*1024*1024 || rc.MaxWorkersLimit != 64 {
		t.Errorf("ResourceMonitorConfig() = %+v", rc)
	}
}

func TestConfig_MergeCLIFlags(t *testing.T) {
	tests := []struct {
		name        string
		workers     int
		delay       int
		wantWorkers int
		wantDelay   int
		wantErr     bool
	}{
		{"未指定保持原值", -1, -1, 4, 100, false},
		{"覆盖并发数", 8, -1, 8, 100, false},
		{"覆盖延迟", -1, 0, 4, 0, false},
		{"并发数越界", 5000, -1, 5000, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Crawl: models.DefaultCrawlConfig()}
			cfg.Crawl.MaxWorkers = 4
			cfg.Crawl.DelayMS = 100

			err := cfg.MergeCLIFlags(tt.workers, tt.delay)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MergeCLIFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if cfg.Crawl.MaxWorkers != tt.wantWorkers || cfg.Crawl.DelayMS != tt.wantDelay {
				t.Errorf("crawl = %+v", cfg.Crawl)
			}
		})
	}
}
