package models

import (
	"encoding/json"
	"time"
)

// CrawlReport 运行报告
type CrawlReport struct {
	// 运行信息
	RunID     string `json:"run_id"`
	SeedURL   string `json:"seed_url,omitempty"` // 恢复运行时为空
	ScopeBase string `json:"scope_base"`
	Resumed   bool   `json:"resumed"`

	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // 秒

	// 统计信息
	Stats TaskStats `json:"stats"`

	// 失败列表(按分类)
	Failures map[Category][]string `json:"failures"`

	// 输出路径
	OutputDir string `json:"output_dir"`
	StateDir  string `json:"state_dir"`

	// 配置快照
	Ignore []string    `json:"ignore"`
	Config CrawlConfig `json:"config"`
}

// ToJSON 序列化为JSON
func (r *CrawlReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *CrawlReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
