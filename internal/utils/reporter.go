package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/SiteMirror/internal/models"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
)

// Reporter 报告生成器
type Reporter struct {
	fs       afero.Fs
	stateDir string
}

// NewReporter 创建报告生成器, 报告写入stateDir
func NewReporter(fs afero.Fs, stateDir string) *Reporter {
	return &Reporter{
		fs:       fs,
		stateDir: stateDir,
	}
}

// Path 报告文件路径
func (r *Reporter) Path() string {
	return filepath.Join(r.stateDir, models.ReportName)
}

// GenerateReport 写出运行报告并打印摘要
func (r *Reporter) GenerateReport(report *models.CrawlReport) error {
	if err := r.fs.MkdirAll(r.stateDir, 0755); err != nil {
		return &models.IOError{Op: "mkdir", Path: r.stateDir, Err: err}
	}

	jsonData, err := report.ToJSON()
	if err != nil {
		return fmt.Errorf("序列化报告失败: %w", err)
	}

	path := r.Path()
	if err := afero.WriteFile(r.fs, path, jsonData, 0644); err != nil {
		return &models.IOError{Op: "write", Path: path, Err: err}
	}

	Debugf("保存报告: %s", path)
	r.logSummary(report)
	return nil
}

// LoadReport 读取上一次运行的报告
func (r *Reporter) LoadReport() (*models.CrawlReport, error) {
	path := r.Path()
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return nil, &models.IOError{Op: "read", Path: path, Err: err}
	}
	var report models.CrawlReport
	if err := report.FromJSON(data); err != nil {
		return nil, fmt.Errorf("解析报告失败 [%s]: %w", path, err)
	}
	return &report, nil
}

func (r *Reporter) logSummary(report *models.CrawlReport) {
	s := report.Stats
	Logger.Info().
		Str("run_id", report.RunID).
		Int("pages", s.Pages).
		Int("js_css", s.ScriptsStyles).
		Int("imgs", s.Images).
		Int("ignored", s.Ignored).
		Int("failed", s.Failed).
		Int64("bytes", s.TotalSize).
		Float64("duration", s.Duration).
		Msg("📊 运行统计")

	if s.Failed > 0 {
		Warnf("⚠️  %d 个URL失败, 已记录到状态目录, 可使用 -a 恢复运行", s.Failed)
	}
	Infof("✅ 报告已生成: %s", r.Path())
}

// NewProgressBar 创建进度条
// 进度条写stderr, 不干扰stdout上的进度行
func NewProgressBar(max int, description string, visible bool) *progressbar.ProgressBar {
	var w io.Writer = os.Stderr
	if !visible {
		w = io.Discard
	}
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
