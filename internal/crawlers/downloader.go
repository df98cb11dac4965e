package crawlers

import (
	"context"
	"sync/atomic"

	"github.com/RecoveryAshes/SiteMirror/internal/models"
	"github.com/RecoveryAshes/SiteMirror/internal/utils"
	"golang.org/x/sync/errgroup"
)

// ResourceDownloader 资源阶段: 页面阶段结束后依次下载脚本/样式表与图片
type ResourceDownloader struct {
	p            *Pipeline
	maxWorkers   int
	showProgress bool
}

// NewResourceDownloader 创建资源下载器
func NewResourceDownloader(p *Pipeline, maxWorkers int, showProgress bool) *ResourceDownloader {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &ResourceDownloader{
		p:            p,
		maxWorkers:   maxWorkers,
		showProgress: showProgress,
	}
}

// Run 下载两个资源队列中的全部URL
// 调用前两个队列都必须已关闭
func (d *ResourceDownloader) Run(ctx context.Context) {
	d.download(ctx, models.CategoryScripts, d.p.Scripts.Drain(), "js & css files")
	d.download(ctx, models.CategoryImages, d.p.Images.Drain(), "images")
	utils.Info("✅ done")
}

func (d *ResourceDownloader) download(ctx context.Context, cat models.Category, items []string, label string) {
	total := len(items)
	utils.Infof("📦 downloading %d %s", total, label)
	if total == 0 {
		return
	}

	bar := utils.NewProgressBar(total, string(cat), d.showProgress)
	defer bar.Finish()

	var finished atomic.Int64
	var g errgroup.Group
	g.SetLimit(d.maxWorkers)

	for _, u := range items {
		if err := ctx.Err(); err != nil {
			d.p.Ledger.Record(cat, u, err)
			continue
		}
		u := u
		g.Go(func() error {
			d.fetchAsset(ctx, cat, u)
			k := finished.Add(1)
			utils.Infof("%d/%d %s", k, total, u)
			_ = bar.Add(1)
			return nil
		})
	}
	_ = g.Wait()
}

// fetchAsset 抓取并写入单个资源, 不做解析
func (d *ResourceDownloader) fetchAsset(ctx context.Context, cat models.Category, u string) {
	resp, err := fetchOK(ctx, d.p.Fetcher, u)
	if err != nil {
		d.p.Ledger.Record(cat, u, err)
		return
	}
	if _, err := d.p.Writer.Write(u, resp.Body, false); err != nil {
		d.p.Ledger.Record(cat, u, err)
		return
	}
	d.p.Counters.Stored(cat, len(resp.Body))
}
