package utils

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/RecoveryAshes/SiteMirror/internal/models"
)

// MaxHeaderValueLength 头部值最大长度 (8KB)
const MaxHeaderValueLength = 8192

var (
	// ForbiddenHeaders 由HTTP客户端管理的头部,不允许用户配置
	// Range会让服务器返回206,镜像只接受完整的200响应
	ForbiddenHeaders = []string{
		"Host",
		"Content-Length",
		"Transfer-Encoding",
		"Connection",
		"Range",
	}

	// SensitiveKeywords 敏感头部名称关键字
	SensitiveKeywords = []string{
		"authorization",
		"cookie",
		"token",
		"key",
		"secret",
		"password",
		"credential",
	}

	headerNameRe  = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	headerValueRe = regexp.MustCompile(`^[\x20-\x7E\t]*$`)
)

// HeaderPolicy 头部校验与日志脱敏
type HeaderPolicy struct {
	forbidden map[string]bool
	sensitive []string
}

// NewHeaderPolicy 创建头部策略
func NewHeaderPolicy() *HeaderPolicy {
	forbidden := make(map[string]bool, len(ForbiddenHeaders))
	for _, h := range ForbiddenHeaders {
		forbidden[strings.ToLower(h)] = true
	}
	return &HeaderPolicy{
		forbidden: forbidden,
		sensitive: SensitiveKeywords,
	}
}

// IsForbidden 检查头部是否禁止配置(不区分大小写)
func (p *HeaderPolicy) IsForbidden(name string) bool {
	return p.forbidden[strings.ToLower(name)]
}

// Check 校验单个头部
func (p *HeaderPolicy) Check(name, value string) error {
	switch {
	case p.IsForbidden(name):
		return &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "此头部由HTTP客户端自动管理,不允许自定义",
			Suggestion: fmt.Sprintf("移除 '%s' 头部配置", name),
		}
	case name == "":
		return &models.ValidationError{Field: "name", Reason: "头部名称不能为空"}
	case !headerNameRe.MatchString(name):
		return &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "头部名称包含非法字符 (仅允许字母、数字和连字符)",
			Suggestion: "例如 'User-Agent', 'X-Custom-Header'",
		}
	case len(value) > MaxHeaderValueLength:
		return &models.ValidationError{
			Field:      "value",
			HeaderName: name,
			Reason:     fmt.Sprintf("头部值过长: %d 字节 (最大 %d)", len(value), MaxHeaderValueLength),
		}
	case !headerValueRe.MatchString(value):
		return &models.ValidationError{
			Field:      "value",
			HeaderName: name,
			Reason:     "头部值包含非法字符 (仅允许可打印ASCII字符)",
			Suggestion: "移除控制字符和非ASCII字符",
		}
	}
	return nil
}

// Validate 校验全部头部,返回第一个错误
// 按名称排序遍历,同样的输入总是报告同一个错误
func (p *HeaderPolicy) Validate(headers http.Header) error {
	for _, name := range sortedHeaderNames(headers) {
		for _, value := range headers[name] {
			if err := p.Check(name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsSensitive 按名称关键字判断是否为敏感头部
func (p *HeaderPolicy) IsSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range p.sensitive {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// RedactValue 脱敏单个头部值
func (p *HeaderPolicy) RedactValue(name, value string) string {
	if !p.IsSensitive(name) {
		return value
	}
	if strings.HasPrefix(value, "Bearer ") {
		return "Bearer ***"
	}
	if len(value) > 8 {
		return value[:4] + "***" + value[len(value)-4:]
	}
	return "***"
}

// Redact 返回可安全写入日志的头部(每个头部只取首个值)
func (p *HeaderPolicy) Redact(headers http.Header) map[string]string {
	result := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		result[name] = p.RedactValue(name, values[0])
	}
	return result
}

// RedactToString 脱敏后格式化为 "A: 1, B: 2"(按名称排序)
func (p *HeaderPolicy) RedactToString(headers http.Header) string {
	redacted := p.Redact(headers)
	names := make([]string, 0, len(redacted))
	for name := range redacted {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+redacted[name])
	}
	return strings.Join(parts, ", ")
}

func sortedHeaderNames(headers http.Header) []string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
