package crawlers

import (
	"sync"
	"sync/atomic"

	"github.com/RecoveryAshes/SiteMirror/internal/models"
)

// Tracker 页面阶段的终止检测
//
// 计数 = 已入队未取出的URL数 + 正在运行的任务数.
// 入队前Add, 任务退出时Done; 计数归零时不可能再有新的入队,
// Idle通道随之关闭, 派发循环据此关闭Frontier队列.
type Tracker struct {
	active atomic.Int64
	idle   chan struct{}
	once   sync.Once
}

// NewTracker 创建终止检测器, initial为预先放入队列的URL数
// 新运行为1(种子), 恢复运行为失败页面数; 为0时Idle立即关闭
func NewTracker(initial int) *Tracker {
	t := &Tracker{idle: make(chan struct{})}
	t.active.Store(int64(initial))
	if initial <= 0 {
		t.once.Do(func() { close(t.idle) })
	}
	return t
}

// Add 在每次成功入队之前调用
func (t *Tracker) Add() {
	t.active.Add(1)
}

// Done 在每个任务退出时调用(包括被跳过或取消的URL)
func (t *Tracker) Done() {
	n := t.active.Add(-1)
	if n < 0 {
		panic("crawlers: Tracker.Done 调用次数多于 Add")
	}
	if n == 0 {
		t.once.Do(func() { close(t.idle) })
	}
}

// Active 当前计数
func (t *Tracker) Active() int {
	return int(t.active.Load())
}

// Idle 计数归零时关闭
func (t *Tracker) Idle() <-chan struct{} {
	return t.idle
}

// Counters 运行统计计数器
type Counters struct {
	pages   atomic.Int64
	scripts atomic.Int64
	images  atomic.Int64
	ignored atomic.Int64
	bytes   atomic.Int64
}

// Stored 记录一次成功写入
func (c *Counters) Stored(cat models.Category, size int) {
	switch cat {
	case models.CategoryPages:
		c.pages.Add(1)
	case models.CategoryScripts:
		c.scripts.Add(1)
	case models.CategoryImages:
		c.images.Add(1)
	}
	c.bytes.Add(int64(size))
}

// Ignored 记录一次命中忽略前缀
func (c *Counters) Ignored() {
	c.ignored.Add(1)
}

// Stats 导出统计
func (c *Counters) Stats() models.TaskStats {
	return models.TaskStats{
		Pages:         int(c.pages.Load()),
		ScriptsStyles: int(c.scripts.Load()),
		Images:        int(c.images.Load()),
		Ignored:       int(c.ignored.Load()),
		TotalSize:     c.bytes.Load(),
	}
}
