// Package crawlers 实现站点镜像的并发爬取引擎
//
// # 概述
//
// 从种子页面出发, 递归下载范围内的HTML页面, 同时收集页面引用的图片、脚本和样式表,
// 在页面阶段结束后统一下载. 本地目录结构与远端路径保持一致.
//
// # 核心组件
//
// ## Dispatcher (页面阶段)
//
// 消费FrontierQueue, 每个URL启动一个任务:
// 抓取 -> 写入 -> 解析 -> 分类 -> 范围/忽略过滤 -> 登记 -> 入队.
// 同时进行的抓取数由semaphore限制, 任务在入队之前释放名额,
// 因此阻塞在满队列上的任务不会占用抓取名额.
//
//	d := NewDispatcher(pipeline, maxWorkers, delay)
//	d.Run(ctx)
//
// ## Tracker (终止检测)
//
// 原子计数 = 排队中的URL + 运行中的任务. 入队前Add, 任务退出时Done,
// 归零时Idle关闭, 派发循环关闭FrontierQueue并返回. 计数覆盖排队中的URL,
// 所以归零时不可能还有发送在进行.
//
// ## ResourceDownloader (资源阶段)
//
// 依次取出js_css与imgs两个AssetQueue的全部URL, 通过errgroup限制并发下载,
// 每完成一项输出一行 k/total.
//
//	NewResourceDownloader(pipeline, maxWorkers, showProgress).Run(ctx)
//
// ## VisitedRegistry / FailureLedger
//
// VisitedRegistry.TryClaim是唯一的去重入口; FailureLedger按分类(pages, js_css, imgs)
// 记录失败URL, 运行结束后持久化, 供恢复运行重放.
//
// ## LinkResolver / ScopeFilter / MirrorWriter
//
//   - LinkResolver: goquery选择 img[src], script[src], link[rel~=stylesheet], a[href]
//   - ScopeFilter: 范围前缀与忽略前缀, 只作用于页面链接
//   - MirrorWriter: URL路径到本地路径的映射, 目录形式的HTML写为index.html
//
// ## CollyFetcher
//
// Fetcher接口的Colly实现, 注入自定义头部并解码br/deflate响应.
//
// # 并发安全
//
// Pipeline中的共享状态只通过各自的原子操作修改:
//   - VisitedRegistry: sync.Map
//   - FailureLedger: sync.Mutex
//   - FrontierQueue / AssetQueue: channel
//   - Tracker / Counters: sync/atomic
package crawlers
