package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/RecoveryAshes/SiteMirror/internal/crawlers"
	"github.com/RecoveryAshes/SiteMirror/internal/models"
	"github.com/RecoveryAshes/SiteMirror/internal/utils"
	"github.com/spf13/afero"
)

// ErrInterrupted 运行被取消, 状态已保存
var ErrInterrupted = errors.New("任务被中断")

// Options 一次运行的公共参数
type Options struct {
	OutputDir    string
	Crawl        models.CrawlConfig
	Resource     crawlers.ResourceMonitorConfig
	ShowProgress bool
}

// Mirror 镜像任务协调器
type Mirror struct {
	opts       Options
	runID      string
	seedURL    string
	resumed    bool
	maxWorkers int

	pipeline *crawlers.Pipeline
	state    *StateStore
	reporter *utils.Reporter
}

// NewFetcher 按爬取配置创建Colly抓取器
func NewFetcher(ctx context.Context, cfg models.CrawlConfig, insecure bool, headers models.HeaderProvider) crawlers.Fetcher {
	return crawlers.NewCollyFetcher(ctx, crawlers.FetcherConfig{
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		MaxBodySize:    cfg.MaxBodySize,
		Insecure:       insecure,
	}, headers)
}

// NewMirror 创建一次全新的镜像任务
// 范围前缀由种子URL截断得到, ignore中的相对路径按范围前缀展开; 输出目录不存在时自动创建
func NewMirror(fs afero.Fs, fetcher crawlers.Fetcher, seedURL string, baseIndex int, ignore []string, opts Options) (*Mirror, error) {
	if err := opts.Crawl.Validate(); err != nil {
		return nil, &models.ConfigError{Cause: err}
	}

	seed, err := normalizeSeed(seedURL)
	if err != nil {
		return nil, err
	}
	base, err := crawlers.ComputeScopeBase(seed, baseIndex)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(seed, base) {
		return nil, &models.ArgumentError{Arg: "URL", Reason: fmt.Sprintf("种子URL %s 不在范围前缀 %s 之下", seed, base)}
	}

	prefixes := make([]string, 0, len(ignore))
	for _, rel := range ignore {
		p, err := crawlers.ExpandIgnore(base, rel)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, p)
	}

	scope := crawlers.NewScopeFilter(base, prefixes)
	if scope.Ignored(seed) {
		return nil, &models.ArgumentError{Arg: "-i", Reason: fmt.Sprintf("种子URL %s 命中忽略前缀", seed)}
	}

	if err := ensureOutputDir(fs, opts.OutputDir); err != nil {
		return nil, err
	}

	m := newMirror(fs, fetcher, scope, 1, opts)
	if m.state.Exists() {
		utils.Warnf("⚠️ 输出目录中已有上次运行的状态, 本次运行结束时将被覆盖: %s", m.state.Dir())
	}
	m.seedURL = seed
	m.pipeline.Registry.TryClaim(seed)
	m.pipeline.Frontier.Seed([]string{seed})
	return m, nil
}

// ResumeMirror 从输出目录中保存的状态恢复任务
// 只重放上次失败的URL, 不使用新的种子
func ResumeMirror(fs afero.Fs, fetcher crawlers.Fetcher, opts Options) (*Mirror, error) {
	if err := opts.Crawl.Validate(); err != nil {
		return nil, &models.ConfigError{Cause: err}
	}

	store := NewStateStore(fs, opts.OutputDir, opts.Crawl.StateDir)
	if !store.Exists() {
		return nil, &models.StateError{Path: store.FailedPath(), Reason: "没有可恢复的状态, 请先执行一次全新运行"}
	}
	snap, err := store.Load()
	if err != nil {
		return nil, err
	}

	pages := snap.Failed[models.CategoryPages]
	m := newMirror(fs, fetcher, crawlers.NewScopeFilter(snap.ScopeBase, snap.Ignore), len(pages), opts)
	m.resumed = true

	p := m.pipeline
	restored := p.Registry.Restore(snap.Visited)
	for _, u := range pages {
		p.Registry.TryClaim(u)
	}
	p.Frontier.Seed(pages)
	for _, u := range snap.Failed[models.CategoryScripts] {
		p.Registry.TryClaim(u)
		p.Scripts.Push(u)
	}
	for _, u := range snap.Failed[models.CategoryImages] {
		p.Registry.TryClaim(u)
		p.Images.Push(u)
	}

	utils.Infof("♻️ 恢复运行: 已访问%d, 待重试页面%d, 脚本/样式%d, 图片%d (上次运行 %s)",
		restored, len(pages), len(snap.Failed[models.CategoryScripts]), len(snap.Failed[models.CategoryImages]), snap.RunID)
	if prev, err := m.reporter.LoadReport(); err == nil {
		utils.Debugf("上次报告: 页面%d, 失败%d, 耗时%.2f秒", prev.Stats.Pages, prev.Stats.Failed, prev.Duration)
	}
	return m, nil
}

func newMirror(fs afero.Fs, fetcher crawlers.Fetcher, scope *crawlers.ScopeFilter, initial int, opts Options) *Mirror {
	capacity := opts.Crawl.QueueCapacity
	state := NewStateStore(fs, opts.OutputDir, opts.Crawl.StateDir)

	return &Mirror{
		opts:       opts,
		runID:      models.NewRunID(),
		maxWorkers: resolveMaxWorkers(opts),
		pipeline: &crawlers.Pipeline{
			Fetcher:  fetcher,
			Resolver: crawlers.NewLinkResolver(),
			Writer:   crawlers.NewMirrorWriter(fs, opts.OutputDir),
			Scope:    scope,
			Registry: crawlers.NewVisitedRegistry(),
			Ledger:   crawlers.NewFailureLedger(),
			Frontier: crawlers.NewFrontierQueue(capacity),
			Scripts:  crawlers.NewAssetQueue(capacity),
			Images:   crawlers.NewAssetQueue(capacity),
			Tracker:  crawlers.NewTracker(initial),
			Counters: &crawlers.Counters{},
		},
		state:    state,
		reporter: utils.NewReporter(fs, state.Dir()),
	}
}

// resolveMaxWorkers 配置为0时按系统资源自动计算
func resolveMaxWorkers(opts Options) int {
	if opts.Crawl.MaxWorkers > 0 {
		return opts.Crawl.MaxWorkers
	}
	monitor := crawlers.NewResourceMonitor(opts.Resource)
	monitor.LogStatus()
	return monitor.CalculateMaxWorkers()
}

// normalizeSeed 去掉种子URL的片段并把空路径补为"/", 与页面链接的去重键保持一致
//
//	normalizeSeed("http://x")          = "http://x/"
//	normalizeSeed("http://x/docs/#top") = "http://x/docs/"
func normalizeSeed(seedURL string) (string, error) {
	if err := models.ValidateURL(seedURL); err != nil {
		return "", &models.ArgumentError{Arg: "URL", Reason: err.Error()}
	}
	u, _ := url.Parse(seedURL)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u.String(), nil
}

func ensureOutputDir(fs afero.Fs, dir string) error {
	if dir == "" {
		return &models.ArgumentError{Arg: "DIR", Reason: "输出目录不能为空"}
	}
	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return &models.IOError{Op: "read", Path: dir, Err: err}
	}
	if exists {
		return nil
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return &models.IOError{Op: "mkdir", Path: dir, Err: err}
	}
	utils.Infof("📁 创建输出目录: %s", dir)
	return nil
}

// RunID 本次运行ID
func (m *Mirror) RunID() string {
	return m.runID
}

// ScopeBase 范围前缀
func (m *Mirror) ScopeBase() string {
	return m.pipeline.Scope.Base()
}

// MaxWorkers 同时进行的请求数上限
func (m *Mirror) MaxWorkers() int {
	return m.maxWorkers
}

// Run 执行镜像任务
// 执行流程:
//  1. 页面阶段: 递归抓取范围内的页面, 直到不再有新页面
//  2. 资源阶段: 下载收集到的脚本/样式表与图片
//  3. 保存状态日志 (被取消时同样保存)
//  4. 生成运行报告
//
// 被取消时返回包装了 ErrInterrupted 的错误, 报告仍然返回
func (m *Mirror) Run(ctx context.Context) (*models.CrawlReport, error) {
	startTime := time.Now()
	p := m.pipeline

	utils.Infof("🚀 开始镜像任务")
	if m.seedURL != "" {
		utils.Infof("种子URL: %s", m.seedURL)
	}
	utils.Infof("范围前缀: %s", p.Scope.Base())
	for _, prefix := range p.Scope.Ignore() {
		utils.Infof("忽略前缀: %s", prefix)
	}
	utils.Infof("输出目录: %s", m.opts.OutputDir)
	utils.Infof("并发数: %d", m.maxWorkers)

	delay := time.Duration(m.opts.Crawl.DelayMS) * time.Millisecond
	crawlers.NewDispatcher(p, m.maxWorkers, delay).Run(ctx)
	p.Scripts.Close()
	p.Images.Close()
	utils.Infof("✅ 页面阶段完成: 已访问%d", p.Registry.Len())

	crawlers.NewResourceDownloader(p, m.maxWorkers, m.opts.ShowProgress).Run(ctx)

	snap := models.NewSnapshot(m.runID, p.Scope.Base(), p.Scope.Ignore())
	snap.Visited = p.Registry.Snapshot()
	snap.Failed = p.Ledger.Snapshot()
	if err := m.state.Save(snap); err != nil {
		return nil, fmt.Errorf("保存状态失败: %w", err)
	}

	endTime := time.Now()
	stats := p.Counters.Stats()
	stats.Visited = len(snap.Visited)
	stats.Failed = snap.FailedCount()
	stats.Duration = endTime.Sub(startTime).Seconds()

	report := &models.CrawlReport{
		RunID:     m.runID,
		SeedURL:   m.seedURL,
		ScopeBase: p.Scope.Base(),
		Resumed:   m.resumed,
		StartTime: startTime,
		EndTime:   endTime,
		Duration:  stats.Duration,
		Stats:     stats,
		Failures:  snap.Failed,
		OutputDir: m.opts.OutputDir,
		StateDir:  m.state.Dir(),
		Ignore:    p.Scope.Ignore(),
		Config:    m.opts.Crawl,
	}
	if err := m.reporter.GenerateReport(report); err != nil {
		utils.Warnf("生成报告失败: %v", err)
	}

	if err := ctx.Err(); err != nil {
		utils.Warnf("⚠️ 任务被中断, 已保存状态, 可使用 -a %s 恢复", m.opts.OutputDir)
		return report, fmt.Errorf("%w: %w", ErrInterrupted, err)
	}

	utils.Infof("✅ 镜像任务完成")
	utils.Infof("总耗时: %.2f秒", stats.Duration)
	return report, nil
}
