package crawlers

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/SiteMirror/internal/models"
)

// ScopeFilter 爬取范围与忽略前缀判断
// 只作用于页面链接, 资源链接不受限制
type ScopeFilter struct {
	base   string
	ignore []string
}

// NewScopeFilter 创建范围过滤器
func NewScopeFilter(base string, ignore []string) *ScopeFilter {
	return &ScopeFilter{
		base:   base,
		ignore: append([]string(nil), ignore...),
	}
}

// Base 范围前缀
func (s *ScopeFilter) Base() string {
	return s.base
}

// Ignore 忽略前缀(保持原顺序)
func (s *ScopeFilter) Ignore() []string {
	return append([]string(nil), s.ignore...)
}

// InScope URL是否以范围前缀开头
func (s *ScopeFilter) InScope(u string) bool {
	return strings.HasPrefix(u, s.base)
}

// Ignored URL是否命中任一忽略前缀
func (s *ScopeFilter) Ignored(u string) bool {
	for _, p := range s.ignore {
		if strings.HasPrefix(u, p) {
			return true
		}
	}
	return false
}

// ComputeScopeBase 把种子URL的路径截断为前baseIndex段, 得到范围前缀
//
//	ComputeScopeBase("http://x/docs/guide/intro", 1) = "http://x/docs"
//	ComputeScopeBase("http://x/docs/", 0)            = "http://x/"
func ComputeScopeBase(seed string, baseIndex int) (string, error) {
	if err := models.ValidateURL(seed); err != nil {
		return "", &models.ArgumentError{Arg: "URL", Reason: err.Error()}
	}
	if baseIndex < 0 {
		return "", &models.ArgumentError{Arg: "BASE", Reason: fmt.Sprintf("不能为负数: %d", baseIndex)}
	}

	u, _ := url.Parse(seed)
	segments := pathSegments(u.Path)
	if len(segments) < baseIndex {
		return "", &models.ArgumentError{
			Arg:    "BASE",
			Reason: fmt.Sprintf("种子路径 %q 只有 %d 段, 小于 %d", u.Path, len(segments), baseIndex),
		}
	}

	base := &url.URL{
		Scheme: u.Scheme,
		User:   u.User,
		Host:   u.Host,
		Path:   "/" + strings.Join(segments[:baseIndex], "/"),
	}
	return base.String(), nil
}

// ExpandIgnore 把相对于范围前缀的忽略路径转换为绝对前缀
// 已经是http(s)绝对URL的必须位于范围前缀之下, 原样返回
func ExpandIgnore(base, rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if models.ValidateURL(rel) == nil {
		if !strings.HasPrefix(rel, base) {
			return "", &models.ArgumentError{Arg: "-i", Reason: fmt.Sprintf("忽略前缀不在范围内: %s (范围: %s)", rel, base)}
		}
		return rel, nil
	}
	trimmed := strings.Trim(rel, "/")
	if trimmed == "" {
		return "", &models.ArgumentError{Arg: "-i", Reason: fmt.Sprintf("忽略前缀为空: %q", rel)}
	}
	return strings.TrimSuffix(base, "/") + "/" + trimmed, nil
}

func pathSegments(p string) []string {
	parts := strings.Split(p, "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}
