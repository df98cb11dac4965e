package core

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/SiteMirror/internal/models"
	"github.com/RecoveryAshes/SiteMirror/internal/utils"
	"github.com/spf13/afero"
)

// StateStore 爬取状态的持久化
// 状态位于 <输出目录>/<state_dir>/ 下: visited.log 与 failed.log
type StateStore struct {
	fs  afero.Fs
	dir string
}

// NewStateStore 创建状态存储, outputDir为镜像输出目录
func NewStateStore(fs afero.Fs, outputDir, stateDir string) *StateStore {
	return &StateStore{
		fs:  fs,
		dir: filepath.Join(outputDir, stateDir),
	}
}

// Dir 状态目录
func (s *StateStore) Dir() string {
	return s.dir
}

// VisitedPath 已访问日志路径
func (s *StateStore) VisitedPath() string {
	return filepath.Join(s.dir, models.VisitedLogName)
}

// FailedPath 失败日志路径
func (s *StateStore) FailedPath() string {
	return filepath.Join(s.dir, models.FailedLogName)
}

// Exists 失败日志是否存在
func (s *StateStore) Exists() bool {
	ok, err := afero.Exists(s.fs, s.FailedPath())
	return err == nil && ok
}

// Save 写出快照
// 先写失败日志再写已访问日志, 两者均覆盖旧文件
func (s *StateStore) Save(snap *models.Snapshot) error {
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return &models.IOError{Op: "mkdir", Path: s.dir, Err: err}
	}

	if err := s.writeFile(s.FailedPath(), snap.WriteFailures); err != nil {
		return err
	}
	if err := s.writeFile(s.VisitedPath(), snap.WriteVisited); err != nil {
		return err
	}

	utils.Debugf("保存状态: %s (已访问%d, 失败%d)", s.dir, len(snap.Visited), snap.FailedCount())
	return nil
}

func (s *StateStore) writeFile(path string, write func(w io.Writer) error) error {
	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return &models.IOError{Op: "write", Path: path, Err: err}
	}
	if err := write(f); err != nil {
		f.Close()
		return &models.IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &models.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Load 读取并校验快照
// 失败日志缺失或格式非法返回 StateError, 已访问日志缺失视为空集
func (s *StateStore) Load() (*models.Snapshot, error) {
	failedPath := s.FailedPath()
	f, err := s.fs.Open(failedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &models.StateError{Path: failedPath, Reason: "找不到失败日志, 该目录没有可恢复的运行"}
		}
		return nil, &models.StateError{Path: failedPath, Reason: "打开失败日志失败", Err: err}
	}
	snap, err := models.ReadFailures(f, failedPath)
	f.Close()
	if err != nil {
		return nil, err
	}

	visitedPath := s.VisitedPath()
	vf, err := s.fs.Open(visitedPath)
	switch {
	case err == nil:
		visited, readErr := models.ReadVisited(vf, visitedPath)
		vf.Close()
		if readErr != nil {
			return nil, readErr
		}
		snap.Visited = visited
	case errors.Is(err, os.ErrNotExist):
		utils.Warnf("找不到已访问日志, 按空集处理: %s", visitedPath)
	default:
		return nil, &models.StateError{Path: visitedPath, Reason: "打开已访问日志失败", Err: err}
	}

	if err := snap.Validate(); err != nil {
		var se *models.StateError
		if errors.As(err, &se) && se.Path == "" {
			se.Path = failedPath
		}
		return nil, err
	}
	return snap, nil
}
