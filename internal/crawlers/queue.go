package crawlers

import (
	"context"
	"sync"
)

// FrontierQueue 待爬页面队列
// 有界channel, 多生产者单消费者; 队列满时生产者阻塞
type FrontierQueue struct {
	pending chan string
	once    sync.Once
}

// NewFrontierQueue 创建页面队列
func NewFrontierQueue(capacity int) *FrontierQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &FrontierQueue{pending: make(chan string, capacity)}
}

// Push 添加URL到队列, 队列满时阻塞直到有空位或ctx取消
func (q *FrontierQueue) Push(ctx context.Context, u string) error {
	select {
	case q.pending <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Seed 在派发开始前预先放入URL, 超出容量的部分在后台等待
func (q *FrontierQueue) Seed(urls []string) {
	for i, u := range urls {
		select {
		case q.pending <- u:
		default:
			rest := urls[i:]
			go func() {
				for _, u := range rest {
					q.pending <- u
				}
			}()
			return
		}
	}
}

// C 消费端通道
func (q *FrontierQueue) C() <-chan string {
	return q.pending
}

// PendingCount 当前排队数量
func (q *FrontierQueue) PendingCount() int {
	return len(q.pending)
}

// Close 由消费端在确认不会再有入队时调用
func (q *FrontierQueue) Close() {
	q.once.Do(func() { close(q.pending) })
}

// AssetQueue 资源队列(图片 / 脚本与样式表)
//
// 有界channel加一个常驻消费者, 消费者把收到的URL暂存到列表中,
// 资源阶段开始时一次性取出. 页面阶段不会因为资源数量超过容量而阻塞.
type AssetQueue struct {
	items chan string
	done  chan struct{}
	once  sync.Once

	mu      sync.Mutex
	spooled []string
}

// NewAssetQueue 创建资源队列并启动消费者
func NewAssetQueue(capacity int) *AssetQueue {
	if capacity < 1 {
		capacity = 1
	}
	q := &AssetQueue{
		items: make(chan string, capacity),
		done:  make(chan struct{}),
	}
	go q.spool()
	return q
}

func (q *AssetQueue) spool() {
	defer close(q.done)
	for u := range q.items {
		q.mu.Lock()
		q.spooled = append(q.spooled, u)
		q.mu.Unlock()
	}
}

// Push 添加资源URL
func (q *AssetQueue) Push(u string) {
	q.items <- u
}

// Len 已接收的数量
func (q *AssetQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.spooled) + len(q.items)
}

// Close 关闭队列, 之后不允许再Push
func (q *AssetQueue) Close() {
	q.once.Do(func() { close(q.items) })
}

// Drain 等待消费者处理完全部URL并按接收顺序返回
// 必须在Close之后调用
func (q *AssetQueue) Drain() []string {
	<-q.done
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.spooled
	q.spooled = nil
	return out
}
