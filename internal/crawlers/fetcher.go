package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/RecoveryAshes/SiteMirror/internal/models"
	"github.com/RecoveryAshes/SiteMirror/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
)

// Response 一次GET请求的结果
type Response struct {
	URL        string // 最终URL(跟随重定向后)
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// ContentType 响应的Content-Type
func (r *Response) ContentType() string {
	return r.Headers.Get("Content-Type")
}

// IsHTML 是否为HTML文档
func (r *Response) IsHTML() bool {
	mediaType, _, err := mime.ParseMediaType(r.ContentType())
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// Fetcher HTTP抓取接口
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Response, error)
}

// fetchOK 抓取URL, 只有200视为成功
func fetchOK(ctx context.Context, f Fetcher, rawURL string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &models.TransportError{URL: rawURL, Err: err}
	}
	resp, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &models.StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// FetcherConfig 抓取器配置
type FetcherConfig struct {
	RequestTimeout time.Duration // 0表示不限
	MaxBodySize    int           // 0表示不限
	Insecure       bool          // 跳过TLS证书验证
}

// CollyFetcher 基于Colly的抓取器
type CollyFetcher struct {
	collector      *colly.Collector
	headerProvider models.HeaderProvider
}

const responseKey = "sitemirror.response"

// NewCollyFetcher 创建抓取器
// ctx取消时正在进行的请求随之中止
func NewCollyFetcher(ctx context.Context, config FetcherConfig, headerProvider models.HeaderProvider) *CollyFetcher {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(config.MaxBodySize),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(config.RequestTimeout)

	if config.Insecure {
		c.WithTransport(&http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		})
		utils.Debugf("抓取器: TLS证书验证已禁用")
	}

	c.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(responseKey, r)
	})

	utils.Debugf("抓取器: 超时=%s, 响应体上限=%d", config.RequestTimeout, config.MaxBodySize)

	return &CollyFetcher{
		collector:      c,
		headerProvider: headerProvider,
	}
}

// Fetch 执行GET请求
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &models.TransportError{URL: rawURL, Err: err}
	}

	var hdr http.Header
	if f.headerProvider != nil {
		h, err := f.headerProvider.GetHeaders()
		if err != nil {
			return nil, fmt.Errorf("获取请求头部失败: %w", err)
		}
		hdr = h
	}

	collyCtx := colly.NewContext()
	if err := f.collector.Request(http.MethodGet, rawURL, nil, collyCtx, hdr); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return nil, &models.TransportError{URL: rawURL, Err: err}
	}

	r, ok := collyCtx.GetAny(responseKey).(*colly.Response)
	if !ok || r == nil {
		return nil, &models.TransportError{URL: rawURL, Err: fmt.Errorf("未收到响应")}
	}

	headers := http.Header{}
	if r.Headers != nil {
		headers = r.Headers.Clone()
	}

	body := r.Body
	if encoding := headers.Get("Content-Encoding"); encoding != "" {
		decoded, err := decompressResponse(encoding, body)
		if err != nil {
			utils.Warnf("解压响应失败 [%s] (编码=%s): %v", rawURL, encoding, err)
		} else {
			body = decoded
		}
	}

	finalURL := rawURL
	if r.Request != nil && r.Request.URL != nil {
		finalURL = r.Request.URL.String()
	}

	return &Response{
		URL:        finalURL,
		StatusCode: r.StatusCode,
		Headers:    headers,
		Body:       body,
	}, nil
}

// decompressResponse 根据Content-Encoding解码响应体
// gzip已由colly处理, 这里只处理 br 与 deflate
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "br":
		decoded, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decoded, nil

	case "deflate":
		// 多数服务器发送zlib包装的deflate, 少数发送裸deflate
		if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
			defer zr.Close()
			if decoded, err := io.ReadAll(zr); err == nil {
				return decoded, nil
			}
		}
		fr := flate.NewReader(bytes.NewReader(body))
		defer fr.Close()
		decoded, err := io.ReadAll(fr)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decoded, nil

	case "", "gzip", "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
