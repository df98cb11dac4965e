package crawlers

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/RecoveryAshes/SiteMirror/internal/models"
	"github.com/RecoveryAshes/SiteMirror/internal/utils"
)

// FailureLedger 失败记录, 按来源队列分类
type FailureLedger struct {
	mu     sync.Mutex
	failed map[models.Category]map[string]struct{}
}

// NewFailureLedger 创建空的失败记录
func NewFailureLedger() *FailureLedger {
	failed := make(map[models.Category]map[string]struct{}, len(models.Categories))
	for _, cat := range models.Categories {
		failed[cat] = make(map[string]struct{})
	}
	return &FailureLedger{failed: failed}
}

// Record 记录一次失败并输出到错误流
// 因取消而未处理的URL同样记录, 以便恢复运行时重放
func (l *FailureLedger) Record(cat models.Category, u string, err error) {
	l.mu.Lock()
	bucket, ok := l.failed[cat]
	if !ok {
		bucket = make(map[string]struct{})
		l.failed[cat] = bucket
	}
	bucket[u] = struct{}{}
	l.mu.Unlock()

	if errors.Is(err, context.Canceled) {
		utils.Logger.Debug().Str("category", string(cat)).Str("url", u).Msg("运行已取消, 留待恢复")
		return
	}
	utils.Logger.Error().Err(err).Str("category", string(cat)).Str("url", u).Msg("❌ 下载失败")
}

// Contains 检查URL是否在指定分类中失败过
func (l *FailureLedger) Contains(cat models.Category, u string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.failed[cat][u]
	return ok
}

// Len 失败URL总数
func (l *FailureLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, bucket := range l.failed {
		n += len(bucket)
	}
	return n
}

// Snapshot 返回按分类排序的失败URL
func (l *FailureLedger) Snapshot() map[models.Category][]string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[models.Category][]string, len(l.failed))
	for cat, bucket := range l.failed {
		urls := make([]string, 0, len(bucket))
		for u := range bucket {
			urls = append(urls, u)
		}
		sort.Strings(urls)
		out[cat] = urls
	}
	return out
}
