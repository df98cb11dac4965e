package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RecoveryAshes/SiteMirror/internal/models"
	"github.com/andybalholm/brotli"
)

type staticHeaders http.Header

func (h staticHeaders) GetHeaders() (http.Header, error) {
	return http.Header(h).Clone(), nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<a href=\"/next\">next</a>"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(r.Header.Get("X-Mirror") + "|" + r.UserAgent()))
	})
	mux.HandleFunc("/brotli", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		bw.Write([]byte("brotli body"))
		bw.Close()
		w.Header().Set("Content-Encoding", "br")
		w.Header().Set("Content-Type", "text/css")
		w.Write(buf.Bytes())
	})
	mux.HandleFunc("/zlib", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		zw.Write([]byte("zlib body"))
		zw.Close()
		w.Header().Set("Content-Encoding", "deflate")
		w.Write(buf.Bytes())
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusFound)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCollyFetcher_Fetch(t *testing.T) {
	server := newTestServer(t)
	headers := staticHeaders{"X-Mirror": {"on"}, "User-Agent": {"sitemirror-test"}}
	f := NewCollyFetcher(context.Background(), FetcherConfig{RequestTimeout: 5 * time.Second}, headers)

	t.Run("HTML页面", func(t *testing.T) {
		resp, err := f.Fetch(context.Background(), server.URL+"/page")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if resp.StatusCode != http.StatusOK || !resp.IsHTML() {
			t.Errorf("状态=%d, IsHTML=%v", resp.StatusCode, resp.IsHTML())
		}
		if string(resp.Body) != "<a href=\"/next\">next</a>" {
			t.Errorf("Body = %q", resp.Body)
		}
	})

	t.Run("非200返回StatusError", func(t *testing.T) {
		_, err := fetchOK(context.Background(), f, server.URL+"/missing")
		var se *models.StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
			t.Errorf("期望404 StatusError, 得到 %v", err)
		}
	})

	t.Run("注入自定义头部", func(t *testing.T) {
		resp, err := f.Fetch(context.Background(), server.URL+"/echo")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if string(resp.Body) != "on|sitemirror-test" {
			t.Errorf("Body = %q", resp.Body)
		}
	})

	t.Run("brotli解码", func(t *testing.T) {
		resp, err := f.Fetch(context.Background(), server.URL+"/brotli")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if string(resp.Body) != "brotli body" {
			t.Errorf("Body = %q", resp.Body)
		}
	})

	t.Run("deflate解码", func(t *testing.T) {
		resp, err := f.Fetch(context.Background(), server.URL+"/zlib")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if string(resp.Body) != "zlib body" {
			t.Errorf("Body = %q", resp.Body)
		}
	})

	t.Run("跟随重定向", func(t *testing.T) {
		resp, err := f.Fetch(context.Background(), server.URL+"/redirect")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if resp.StatusCode != http.StatusOK || !resp.IsHTML() {
			t.Errorf("重定向后状态=%d", resp.StatusCode)
		}
	})

	t.Run("连接失败返回TransportError", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), "http://127.0.0.1:1/unreachable")
		var te *models.TransportError
		if !errors.As(err, &te) {
			t.Errorf("期望TransportError, 得到 %v", err)
		}
	})
}

func TestCollyFetcher_Cancel(t *testing.T) {
	server := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	f := NewCollyFetcher(ctx, FetcherConfig{}, nil)

	time.AfterFunc(50*time.Millisecond, cancel)
	start := time.Now()
	_, err := f.Fetch(ctx, server.URL+"/slow")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("期望context.Canceled, 得到 %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("取消后请求应尽快返回")
	}
}

func TestDecompressResponse(t *testing.T) {
	var raw bytes.Buffer
	fw, _ := flate.NewWriter(&raw, flate.DefaultCompression)
	fw.Write([]byte("raw deflate"))
	fw.Close()

	got, err := decompressResponse("deflate", raw.Bytes())
	if err != nil || string(got) != "raw deflate" {
		t.Errorf("裸deflate解码 = %q, %v", got, err)
	}

	got, err = decompressResponse("gzip", []byte("already decoded"))
	if err != nil || string(got) != "already decoded" {
		t.Errorf("gzip应原样返回, 得到 %q, %v", got, err)
	}

	got, err = decompressResponse("x-unknown", []byte("as is"))
	if err != nil || string(got) != "as is" {
		t.Errorf("未知编码应原样返回, 得到 %q, %v", got, err)
	}
}

func TestResponse_IsHTML(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"application/xhtml+xml", true},
		{"image/png", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			r := &Response{Headers: http.Header{"Content-Type": {tt.contentType}}}
			if got := r.IsHTML(); got != tt.want {
				t.Errorf("IsHTML() = %v, want %v", got, tt.want)
			}
		})
	}
}
