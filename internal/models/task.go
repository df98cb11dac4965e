package models

import (
	"fmt"
	"strings"
)

// Category 失败记录与资源队列的分类
type Category string

const (
	CategoryPages   Category = "pages"  // 页面(Frontier队列)
	CategoryScripts Category = "js_css" // 脚本与样式表
	CategoryImages  Category = "imgs"   // 图片
)

// Categories 持久化时各分类块的固定顺序
var Categories = []Category{CategoryPages, CategoryScripts, CategoryImages}

// ParseCategory 将块标签解析为分类
func ParseCategory(tag string) (Category, bool) {
	switch Category(strings.TrimSpace(tag)) {
	case CategoryPages:
		return CategoryPages, true
	case CategoryScripts:
		return CategoryScripts, true
	case CategoryImages:
		return CategoryImages, true
	}
	return "", false
}

// LinkKind 页面中发现的链接类型
type LinkKind int

const (
	LinkAnchor     LinkKind = iota // <a href>
	LinkImage                      // <img src>
	LinkScript                     // <script src>
	LinkStylesheet                 // <link rel="stylesheet" href>
)

// String 返回链接类型名称
func (k LinkKind) String() string {
	switch k {
	case LinkAnchor:
		return "anchor"
	case LinkImage:
		return "image"
	case LinkScript:
		return "script"
	case LinkStylesheet:
		return "stylesheet"
	}
	return fmt.Sprintf("LinkKind(%d)", int(k))
}

// Category 链接所属的队列分类
func (k LinkKind) Category() Category {
	switch k {
	case LinkImage:
		return CategoryImages
	case LinkScript, LinkStylesheet:
		return CategoryScripts
	}
	return CategoryPages
}

// TaskStats 一次运行的统计
type TaskStats struct {
	Pages         int     `json:"pages"`          // 成功下载的页面数
	Images        int     `json:"images"`         // 成功下载的图片数
	ScriptsStyles int     `json:"scripts_styles"` // 成功下载的脚本/样式表数
	Ignored       int     `json:"ignored"`        // 命中忽略前缀的链接数
	Failed        int     `json:"failed"`         // 失败URL数
	Visited       int     `json:"visited"`        // 已登记URL数
	TotalSize     int64   `json:"total_size"`     // 写入字节数
	Duration      float64 `json:"duration"`       // 总耗时(秒)
}

// CrawlConfig 爬取配置
type CrawlConfig struct {
	QueueCapacity  int    `mapstructure:"queue_capacity" json:"queue_capacity"`   // 队列容量 (默认:1000)
	MaxWorkers     int    `mapstructure:"max_workers" json:"max_workers"`         // 同时进行的请求数, 0表示按系统资源自动计算
	DelayMS        int    `mapstructure:"delay_ms" json:"delay_ms"`               // 每次派发前的固定延迟(毫秒)
	RequestTimeout int    `mapstructure:"request_timeout" json:"request_timeout"` // 单次请求超时(秒), 0表示不限
	MaxBodySize    int    `mapstructure:"max_body_size" json:"max_body_size"`     // 响应体上限(字节), 0表示不限
	StateDir       string `mapstructure:"state_dir" json:"state_dir"`             // 输出目录下的状态子目录名
}

// DefaultCrawlConfig 默认爬取配置
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		QueueCapacity:  1000,
		MaxWorkers:     0,
		DelayMS:        0,
		RequestTimeout: 30,
		MaxBodySize:    0,
		StateDir:       ".sitemirror",
	}
}

// Validate 验证配置
func (c *CrawlConfig) Validate() error {
	if c.QueueCapacity < 1 || c.QueueCapacity > 1000000 {
		return fmt.Errorf("队列容量必须在1-1000000之间")
	}
	if c.MaxWorkers < 0 || c.MaxWorkers > 1000 {
		return fmt.Errorf("并发数必须在0-1000之间")
	}
	if c.DelayMS < 0 {
		return fmt.Errorf("派发延迟不能为负数")
	}
	if c.RequestTimeout < 0 || c.RequestTimeout > 3600 {
		return fmt.Errorf("请求超时必须在0-3600秒之间")
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("响应体上限不能为负数")
	}
	if c.StateDir == "" || strings.ContainsAny(c.StateDir, `/\`) || c.StateDir == "." || c.StateDir == ".." {
		return fmt.Errorf("状态目录必须是单层目录名: %q", c.StateDir)
	}
	return nil
}
