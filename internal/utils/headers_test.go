package utils

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/RecoveryAshes/SiteMirror/internal/models"
)

func TestHeaderPolicy_Check(t *testing.T) {
	policy := NewHeaderPolicy()

	tests := []struct {
		name        string
		headerName  string
		headerValue string
		expectError bool
	}{
		{"合法头部", "User-Agent", "Mozilla/5.0", false},
		{"合法名称-数字", "X-Request-ID-123", "1", false},
		{"合法值-空字符串", "X-Empty", "", false},
		{"合法值-长字符串", "X-Long", strings.Repeat(" ", 8000), false},
		{"禁止头部-Host", "Host", "example.com", true},
		{"禁止头部-不区分大小写", "content-length", "123", true},
		{"禁止头部-Range", "Range", "bytes=0-1", true},
		{"非法名称-空格", "User Agent", "value", true},
		{"非法名称-下划线", "User_Agent", "value", true},
		{"非法名称-空字符串", "", "value", true},
		{"非法值-超长", "X-TooLong", strings.Repeat("a", MaxHeaderValueLength+1), true},
		{"非法值-控制字符", "X-Bad", "value\x00with\x01null", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Check(tt.headerName, tt.headerValue)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
			if err != nil {
				var ve *models.ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("期望ValidationError, 得到 %T", err)
				}
			}
		})
	}
}

func TestHeaderPolicy_Validate(t *testing.T) {
	policy := NewHeaderPolicy()

	good := http.Header{}
	good.Set("User-Agent", "sitemirror")
	good.Set("Accept", "text/html")
	if err := policy.Validate(good); err != nil {
		t.Errorf("合法头部不应报错: %v", err)
	}

	bad := http.Header{}
	bad.Set("User-Agent", "sitemirror")
	bad.Set("Connection", "close")
	if err := policy.Validate(bad); err == nil {
		t.Error("禁止头部应报错")
	}
}

func TestHeaderPolicy_Redact(t *testing.T) {
	policy := NewHeaderPolicy()

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"Authorization", "Bearer abc.def.ghi", "Bearer ***"},
		{"X-Api-Key", "sk-1234567890abcdef", "sk-1***cdef"},
		{"Cookie", "a=1", "***"},
		{"User-Agent", "Mozilla/5.0", "Mozilla/5.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.RedactValue(tt.name, tt.value); got != tt.want {
				t.Errorf("RedactValue(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}

	h := http.Header{}
	h.Set("X-Token", "short")
	h.Set("Accept", "*/*")
	if got := policy.RedactToString(h); got != "Accept: */*, X-Token: ***" {
		t.Errorf("RedactToString() = %q", got)
	}
}
