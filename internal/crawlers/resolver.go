package crawlers

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/SiteMirror/internal/models"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Link 页面中解析出的绝对链接
type Link struct {
	URL  string
	Kind models.LinkKind
}

// linkSelector 选择器与取值属性
type linkSelector struct {
	query string
	attr  string
	kind  models.LinkKind
}

var linkSelectors = []linkSelector{
	{"img[src]", "src", models.LinkImage},
	{"script[src]", "src", models.LinkScript},
	{"link[rel~=stylesheet][href]", "href", models.LinkStylesheet},
	{"a[href]", "href", models.LinkAnchor},
}

// LinkResolver 链接提取与分类
type LinkResolver struct{}

// NewLinkResolver 创建链接解析器
func NewLinkResolver() *LinkResolver {
	return &LinkResolver{}
}

// Resolve 解析HTML文档, 返回相对于base解析后的链接
// contentType用于检测字符集; 无法解析的引用直接跳过
func (r *LinkResolver) Resolve(base *url.URL, contentType string, body []byte) ([]Link, error) {
	doc, err := parseDocument(contentType, body)
	if err != nil {
		return nil, err
	}

	links := make([]Link, 0)
	for _, sel := range linkSelectors {
		doc.Find(sel.query).Each(func(_ int, s *goquery.Selection) {
			raw, _ := s.Attr(sel.attr)
			resolved, ok := resolveReference(base, raw, sel.kind == models.LinkAnchor)
			if !ok {
				return
			}
			links = append(links, Link{URL: resolved, Kind: sel.kind})
		})
	}
	return links, nil
}

func parseDocument(contentType string, body []byte) (*goquery.Document, error) {
	var reader io.Reader = bytes.NewReader(body)
	if decoded, err := charset.NewReader(reader, contentType); err == nil {
		reader = decoded
	} else {
		reader = bytes.NewReader(body)
	}

	root, err := html.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// resolveReference 把属性值解析为绝对http(s) URL
// 片段总是去掉; 页面链接额外去掉查询串
func resolveReference(base *url.URL, raw string, anchor bool) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	u := base.ResolveReference(ref)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	u.Fragment = ""
	u.RawFragment = ""
	if anchor {
		u.RawQuery = ""
		u.ForceQuery = false
	}
	return u.String(), true
}
