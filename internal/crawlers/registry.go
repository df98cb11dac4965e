package crawlers

import (
	"sort"
	"sync"
	"sync/atomic"
)

// VisitedRegistry 已登记URL集合
// 所有入队或被显式跳过的URL都在这里登记,是防止重复工作的唯一依据
type VisitedRegistry struct {
	urls sync.Map // url -> struct{}
	size atomic.Int64
}

// NewVisitedRegistry 创建空的登记表
func NewVisitedRegistry() *VisitedRegistry {
	return &VisitedRegistry{}
}

// TryClaim 原子地检查并登记URL
// 同一URL的并发调用中恰好一个返回true, 调用方只在返回true时入队
func (r *VisitedRegistry) TryClaim(u string) bool {
	if _, loaded := r.urls.LoadOrStore(u, struct{}{}); loaded {
		return false
	}
	r.size.Add(1)
	return true
}

// Contains 检查URL是否已登记
func (r *VisitedRegistry) Contains(u string) bool {
	_, ok := r.urls.Load(u)
	return ok
}

// Len 已登记URL数量
func (r *VisitedRegistry) Len() int {
	return int(r.size.Load())
}

// Snapshot 返回排序后的全部URL
func (r *VisitedRegistry) Snapshot() []string {
	out := make([]string, 0, r.Len())
	r.urls.Range(func(key, _ any) bool {
		out = append(out, key.(string))
		return true
	})
	sort.Strings(out)
	return out
}

// Restore 从持久化状态恢复登记表, 返回新增数量
func (r *VisitedRegistry) Restore(urls []string) int {
	added := 0
	for _, u := range urls {
		if r.TryClaim(u) {
			added++
		}
	}
	return added
}
