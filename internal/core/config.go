package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/SiteMirror/internal/crawlers"
	"github.com/RecoveryAshes/SiteMirror/internal/models"
	"github.com/RecoveryAshes/SiteMirror/internal/utils"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Crawl    models.CrawlConfig `mapstructure:"crawl"`
	Headers  map[string]string  `mapstructure:"headers"`
	Logging  LoggingConfig      `mapstructure:"logging"`
	Resource ResourceConfig     `mapstructure:"resource"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// ResourceConfig 自动并发计算参数(单位MB)
type ResourceConfig struct {
	SafetyReserveMemory int `mapstructure:"safety_reserve_memory"`
	SafetyThreshold     int `mapstructure:"safety_threshold"`
	MaxWorkersLimit     int `mapstructure:"max_workers_limit"`
	WorkerMemoryUsage   int `mapstructure:"worker_memory_usage"`
}

// LoadConfig 加载配置文件
// configPath为空时搜索默认位置, 找不到配置文件则使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".sitemirror"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, &models.ConfigError{FilePath: configPath, Cause: fmt.Errorf("读取配置文件失败: %w", err)}
		}
	} else {
		utils.Debugf("使用配置文件: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{FilePath: v.ConfigFileUsed(), Cause: fmt.Errorf("解析配置文件失败: %w", err)}
	}
	if err := config.Crawl.Validate(); err != nil {
		return nil, &models.ConfigError{FilePath: v.ConfigFileUsed(), Cause: err}
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	crawl := models.DefaultCrawlConfig()
	v.SetDefault("crawl.queue_capacity", crawl.QueueCapacity)
	v.SetDefault("crawl.max_workers", crawl.MaxWorkers)
	v.SetDefault("crawl.delay_ms", crawl.DelayMS)
	v.SetDefault("crawl.request_timeout", crawl.RequestTimeout)
	v.SetDefault("crawl.max_body_size", crawl.MaxBodySize)
	v.SetDefault("crawl.state_dir", crawl.StateDir)

	v.SetDefault("headers", map[string]string{})

	logging := utils.DefaultLogConfig()
	v.SetDefault("logging.level", logging.Level)
	v.SetDefault("logging.log_dir", logging.LogDir)
	v.SetDefault("logging.rotation.max_size", logging.MaxSize)
	v.SetDefault("logging.rotation.max_backups", logging.MaxBackups)
	v.SetDefault("logging.rotation.max_age", logging.MaxAge)
	v.SetDefault("logging.rotation.compress", logging.Compress)

	v.SetDefault("resource.safety_reserve_memory", 1024)
	v.SetDefault("resource.safety_threshold", 500)
	v.SetDefault("resource.max_workers_limit", 64)
	v.SetDefault("resource.worker_memory_usage", 8)
}

// LogConfig 转换为日志器配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// ResourceMonitorConfig 转换为资源监控器配置(MB转字节)
func (c *Config) ResourceMonitorConfig() crawlers.ResourceMonitorConfig {
	const mb = 1024 * 1024
	return crawlers.ResourceMonitorConfig{
		SafetyReserveMemory: int64(c.Resource.SafetyReserveMemory) * mb,
		SafetyThreshold:     int64(c.Resource.SafetyThreshold) * mb,
		MaxWorkersLimit:     c.Resource.MaxWorkersLimit,
		WorkerMemoryUsage:   int64(c.Resource.WorkerMemoryUsage) * mb,
	}
}

// MergeCLIFlags 合并命令行参数到配置, 命令行优先
// 负数表示未指定
func (c *Config) MergeCLIFlags(maxWorkers int, delayMS int) error {
	if maxWorkers >= 0 {
		c.Crawl.MaxWorkers = maxWorkers
	}
	if delayMS >= 0 {
		c.Crawl.DelayMS = delayMS
	}
	return c.Crawl.Validate()
}
