package crawlers

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/SiteMirror/internal/models"
	"github.com/spf13/afero"
)

// indexFile 目录形式URL对应的文件名
const indexFile = "index.html"

// MirrorWriter 按URL路径把内容写到输出目录
type MirrorWriter struct {
	fs   afero.Fs
	root string
}

// NewMirrorWriter 创建镜像写入器
func NewMirrorWriter(fs afero.Fs, root string) *MirrorWriter {
	return &MirrorWriter{fs: fs, root: root}
}

// LocalPath 计算URL对应的本地路径
//
//	/a/b      (HTML) -> <root>/a/b/index.html
//	/a/b.html (HTML) -> <root>/a/b.html
//	/img/x.png       -> <root>/img/x.png
//	/docs/           -> <root>/docs/index.html
func (w *MirrorWriter) LocalPath(rawURL string, isHTML bool) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("无效的URL: %w", err)
	}

	dirStyle := u.Path == "" || strings.HasSuffix(u.Path, "/")
	cleaned := path.Clean("/" + u.Path)

	switch {
	case isHTML && !strings.HasSuffix(cleaned, ".html"):
		cleaned = path.Join(cleaned, indexFile)
	case dirStyle || cleaned == "/":
		cleaned = path.Join(cleaned, indexFile)
	}
	return filepath.Join(w.root, filepath.FromSlash(cleaned)), nil
}

// Write 写入内容, 先创建全部上级目录, 返回本地路径
func (w *MirrorWriter) Write(rawURL string, content []byte, isHTML bool) (string, error) {
	target, err := w.LocalPath(rawURL, isHTML)
	if err != nil {
		return "", &models.IOError{Op: "write", Path: rawURL, Err: err}
	}

	dir := filepath.Dir(target)
	if err := w.fs.MkdirAll(dir, 0755); err != nil {
		return "", &models.IOError{Op: "mkdir", Path: dir, Err: err}
	}
	if err := afero.WriteFile(w.fs, target, content, 0644); err != nil {
		return "", &models.IOError{Op: "write", Path: target, Err: err}
	}
	return target, nil
}
