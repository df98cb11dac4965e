package crawlers

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/RecoveryAshes/SiteMirror/internal/models"
	"github.com/RecoveryAshes/SiteMirror/internal/utils"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Pipeline 一次运行共享的组件
// 由编排层创建, 以指针传给每个任务, 生命周期为一次运行
type Pipeline struct {
	Fetcher  Fetcher
	Resolver *LinkResolver
	Writer   *MirrorWriter
	Scope    *ScopeFilter
	Registry *VisitedRegistry
	Ledger   *FailureLedger
	Frontier *FrontierQueue
	Scripts  *AssetQueue
	Images   *AssetQueue
	Tracker  *Tracker
	Counters *Counters
}

// assetQueue 分类对应的资源队列
func (p *Pipeline) assetQueue(cat models.Category) *AssetQueue {
	if cat == models.CategoryImages {
		return p.Images
	}
	return p.Scripts
}

// Dispatcher 页面阶段: 消费Frontier队列, 每个URL一个任务
type Dispatcher struct {
	p       *Pipeline
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// NewDispatcher 创建派发器
// maxWorkers限制同时进行的抓取数, delay为每次派发前的固定延迟(0表示不延迟)
func NewDispatcher(p *Pipeline, maxWorkers int, delay time.Duration) *Dispatcher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	d := &Dispatcher{
		p:   p,
		sem: semaphore.NewWeighted(int64(maxWorkers)),
	}
	if delay > 0 {
		d.limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return d
}

// Run 运行页面阶段, 直到不会再有新页面入队
// ctx取消后剩余的URL记为失败, 留给恢复运行
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-d.p.Tracker.Idle():
			d.p.Frontier.Close()
			return
		case pageURL := <-d.p.Frontier.C():
			d.dispatch(ctx, pageURL, &wg)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, pageURL string, wg *sync.WaitGroup) {
	if err := d.admit(ctx); err != nil {
		d.p.Ledger.Record(models.CategoryPages, pageURL, err)
		d.p.Tracker.Done()
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer d.p.Tracker.Done()
		d.crawlPage(ctx, pageURL)
	}()
}

// admit 等待派发延迟并占用一个抓取名额
func (d *Dispatcher) admit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return d.sem.Acquire(ctx, 1)
}

// crawlPage 单个页面任务: 抓取 -> 写入 -> 解析 -> 分类 -> 过滤入队
func (d *Dispatcher) crawlPage(ctx context.Context, pageURL string) {
	resp, ok := d.fetchAndStore(ctx, pageURL)
	if !ok || !resp.IsHTML() {
		return
	}

	base, err := url.Parse(resp.URL)
	if err != nil {
		base, _ = url.Parse(pageURL)
	}
	links, err := d.p.Resolver.Resolve(base, resp.ContentType(), resp.Body)
	if err != nil {
		utils.Debugf("跳过无法解析的页面 [%s]: %v", pageURL, err)
		return
	}

	sent := 0
	for _, link := range links {
		if link.Kind == models.LinkAnchor {
			if d.enqueuePage(ctx, link.URL) {
				sent++
			}
			continue
		}
		if d.p.Registry.TryClaim(link.URL) {
			d.p.assetQueue(link.Kind.Category()).Push(link.URL)
		}
	}
	utils.Debugf("页面完成 [%s]: 链接=%d, 新页面=%d, 排队=%d", pageURL, len(links), sent, d.p.Frontier.PendingCount())
}

// fetchAndStore 抓取并写入页面, 期间占用抓取名额
func (d *Dispatcher) fetchAndStore(ctx context.Context, pageURL string) (*Response, bool) {
	defer d.sem.Release(1)

	utils.Infof("[%d] %s", d.p.Tracker.Active(), pageURL)

	resp, err := fetchOK(ctx, d.p.Fetcher, pageURL)
	if err != nil {
		d.p.Ledger.Record(models.CategoryPages, pageURL, err)
		return nil, false
	}

	if _, err := d.p.Writer.Write(pageURL, resp.Body, resp.IsHTML()); err != nil {
		d.p.Ledger.Record(models.CategoryPages, pageURL, err)
	} else {
		d.p.Counters.Stored(models.CategoryPages, len(resp.Body))
	}
	return resp, true
}

// enqueuePage 范围与忽略检查, 登记后入队; 返回是否入队
func (d *Dispatcher) enqueuePage(ctx context.Context, u string) bool {
	if !d.p.Scope.InScope(u) {
		return false
	}
	if d.p.Scope.Ignored(u) {
		if d.p.Registry.TryClaim(u) {
			d.p.Counters.Ignored()
			utils.Debugf("忽略: %s", u)
		}
		return false
	}
	if !d.p.Registry.TryClaim(u) {
		return false
	}

	d.p.Tracker.Add()
	if err := d.p.Frontier.Push(ctx, u); err != nil {
		d.p.Ledger.Record(models.CategoryPages, u, err)
		d.p.Tracker.Done()
		return false
	}
	return true
}
