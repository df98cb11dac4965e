package models

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	// SnapshotVersion 当前失败日志格式版本
	SnapshotVersion = 1

	// snapshotMagic 失败日志首行标识
	snapshotMagic = "#sitemirror-state"

	// BlockMarker 分类块起始标记, 格式: "@@ <tag>"
	BlockMarker = "@@"

	// VisitedLogName 已访问URL日志文件名
	VisitedLogName = "visited.log"

	// FailedLogName 失败日志文件名
	FailedLogName = "failed.log"

	// ReportName 运行报告文件名
	ReportName = "report.json"

	// maxLineSize 单行最大长度(超长URL)
	maxLineSize = 1024 * 1024
)

// Snapshot 爬取快照
// 运行结束时写出,恢复运行时整体读入以替换初始状态
type Snapshot struct {
	Version   int                   // 格式版本
	RunID     string                // 产生此快照的运行ID
	ScopeBase string                // 爬取范围前缀
	Ignore    []string              // 忽略前缀(保持顺序)
	Visited   []string              // 已登记URL
	Failed    map[Category][]string // 按分类划分的失败URL
}

// NewSnapshot 创建空快照
func NewSnapshot(runID, scopeBase string, ignore []string) *Snapshot {
	return &Snapshot{
		Version:   SnapshotVersion,
		RunID:     runID,
		ScopeBase: scopeBase,
		Ignore:    ignore,
		Failed:    make(map[Category][]string),
	}
}

// FailedCount 失败URL总数
func (s *Snapshot) FailedCount() int {
	n := 0
	for _, urls := range s.Failed {
		n += len(urls)
	}
	return n
}

// WriteVisited 写出已访问日志,每行一个URL
func (s *Snapshot) WriteVisited(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, u := range sortedCopy(s.Visited) {
		if _, err := bw.WriteString(u + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFailures 写出失败日志
// 格式:
//
//	#sitemirror-state v1
//	#run <uuid>
//	#scope <scope base>
//	#ignore <prefix>
//	@@ pages
//	<url>
//	@@ js_css
//	<url>
//	@@ imgs
//	<url>
func (s *Snapshot) WriteFailures(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s v%d\n", snapshotMagic, SnapshotVersion)
	if s.RunID != "" {
		fmt.Fprintf(bw, "#run %s\n", s.RunID)
	}
	fmt.Fprintf(bw, "#scope %s\n", s.ScopeBase)
	for _, p := range s.Ignore {
		fmt.Fprintf(bw, "#ignore %s\n", p)
	}
	for _, cat := range Categories {
		fmt.Fprintf(bw, "%s %s\n", BlockMarker, cat)
		for _, u := range sortedCopy(s.Failed[cat]) {
			fmt.Fprintf(bw, "%s\n", u)
		}
	}
	return bw.Flush()
}

// ReadVisited 读取已访问日志,忽略空行
func ReadVisited(r io.Reader, source string) ([]string, error) {
	scanner := newLineScanner(r)
	visited := make([]string, 0)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		visited = append(visited, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &StateError{Path: source, Reason: "读取已访问日志失败", Err: err}
	}
	return visited, nil
}

// ReadFailures 解析失败日志,返回只含头部与失败块的快照
func ReadFailures(r io.Reader, source string) (*Snapshot, error) {
	scanner := newLineScanner(r)
	snap := &Snapshot{Failed: make(map[Category][]string)}

	lineNum := 0
	sawMagic := false
	sawScope := false
	var current Category

	fail := func(reason string) error {
		return &StateError{Path: source, Line: lineNum, Reason: reason}
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !sawMagic {
			version, err := parseMagic(line)
			if err != nil {
				return nil, fail(err.Error())
			}
			snap.Version = version
			sawMagic = true
			continue
		}

		switch {
		case strings.HasPrefix(line, BlockMarker):
			tag := strings.TrimSpace(strings.TrimPrefix(line, BlockMarker))
			cat, ok := ParseCategory(tag)
			if !ok {
				return nil, fail(fmt.Sprintf("未知的分类标签: %q", tag))
			}
			current = cat
			if _, exists := snap.Failed[cat]; !exists {
				snap.Failed[cat] = make([]string, 0)
			}

		case strings.HasPrefix(line, "#"):
			if current != "" {
				return nil, fail("头部字段必须位于所有分类块之前")
			}
			key, value, _ := strings.Cut(strings.TrimPrefix(line, "#"), " ")
			value = strings.TrimSpace(value)
			switch key {
			case "run":
				snap.RunID = value
			case "scope":
				snap.ScopeBase = value
				sawScope = true
			case "ignore":
				if value != "" {
					snap.Ignore = append(snap.Ignore, value)
				}
			default:
				// 未知头部字段,为后续版本保留
			}

		default:
			if current == "" {
				return nil, fail("URL出现在首个分类块之前")
			}
			snap.Failed[current] = append(snap.Failed[current], line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &StateError{Path: source, Reason: "读取失败日志失败", Err: err}
	}

	if !sawMagic {
		return nil, &StateError{Path: source, Reason: "文件为空或缺少格式标识"}
	}
	if !sawScope || snap.ScopeBase == "" {
		return nil, &StateError{Path: source, Reason: "缺少 #scope 头部"}
	}
	return snap, nil
}

// Validate 检查快照与其记录的爬取范围是否一致
// 恢复运行没有新的种子URL,只能在快照内部做一致性校验
func (s *Snapshot) Validate() error {
	base, err := url.Parse(s.ScopeBase)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return &StateError{Reason: fmt.Sprintf("范围前缀不是有效的http(s) URL: %q", s.ScopeBase)}
	}
	for _, p := range s.Ignore {
		if !strings.HasPrefix(p, s.ScopeBase) {
			return &StateError{Reason: fmt.Sprintf("忽略前缀不在范围内: %s (范围: %s)", p, s.ScopeBase)}
		}
	}
	for _, u := range s.Failed[CategoryPages] {
		if !strings.HasPrefix(u, s.ScopeBase) {
			return &StateError{Reason: fmt.Sprintf("失败页面不在范围内: %s (范围: %s)", u, s.ScopeBase)}
		}
	}
	return nil
}

// parseMagic 解析首行 "#sitemirror-state v<N>"
func parseMagic(line string) (int, error) {
	rest, ok := strings.CutPrefix(line, snapshotMagic)
	if !ok {
		return 0, fmt.Errorf("缺少格式标识 %q", snapshotMagic)
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "v") {
		return 0, fmt.Errorf("缺少格式版本")
	}
	version, err := strconv.Atoi(strings.TrimPrefix(rest, "v"))
	if err != nil || version < 1 {
		return 0, fmt.Errorf("无效的格式版本: %q", rest)
	}
	if version > SnapshotVersion {
		return 0, fmt.Errorf("不支持的格式版本: v%d (当前支持 v%d)", version, SnapshotVersion)
	}
	return version, nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return scanner
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
