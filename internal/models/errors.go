package models

import "fmt"

// TransportError 网络层失败(连接、超时、取消等)
type TransportError struct {
	URL string
	Err error
}

// Error 实现error接口
func (e *TransportError) Error() string {
	return fmt.Sprintf("请求失败 [%s]: %v", e.URL, e.Err)
}

// Unwrap 支持errors.Unwrap
func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError 非200响应
type StatusError struct {
	URL        string
	StatusCode int
}

// Error 实现error接口
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d [%s]", e.StatusCode, e.URL)
}

// IOError 目录创建或文件写入失败
type IOError struct {
	Op   string // mkdir, write, read
	Path string
	Err  error
}

// Error 实现error接口
func (e *IOError) Error() string {
	return fmt.Sprintf("%s失败 [%s]: %v", ioOpName(e.Op), e.Path, e.Err)
}

// Unwrap 支持errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

func ioOpName(op string) string {
	switch op {
	case "mkdir":
		return "创建目录"
	case "write":
		return "写入文件"
	case "read":
		return "读取文件"
	}
	return op
}

// ArgumentError 启动参数错误,在任何工作开始前终止运行
type ArgumentError struct {
	Arg    string
	Reason string
}

// Error 实现error接口
func (e *ArgumentError) Error() string {
	if e.Arg == "" {
		return fmt.Sprintf("参数错误: %s", e.Reason)
	}
	return fmt.Sprintf("参数错误 [%s]: %s", e.Arg, e.Reason)
}

// StateError 恢复运行时状态日志不可读或格式非法
type StateError struct {
	Path   string
	Line   int // 0表示与具体行无关
	Reason string
	Err    error
}

// Error 实现error接口
func (e *StateError) Error() string {
	msg := "状态日志错误"
	if e.Path != "" {
		msg += " [" + e.Path
		if e.Line > 0 {
			msg += fmt.Sprintf(":%d", e.Line)
		}
		msg += "]"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap 支持errors.Unwrap
func (e *StateError) Unwrap() error {
	return e.Err
}
