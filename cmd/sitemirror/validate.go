package main

import (
	"fmt"
	"strconv"

	"github.com/RecoveryAshes/SiteMirror/internal/models"
)

// runArgs run 命令解析后的参数
type runArgs struct {
	Resume bool
	URL    string
	Dir    string
	Base   int
	Freq   int // -1 表示未指定
	Ignore []string
}

// parseRunArgs 解析 run 命令的位置参数
//
//	新任务: URL DIR BASE [FREQ] [-i PREFIX]...
//	恢复:   -a DIR [FREQ]
func parseRunArgs(args []string, resume bool, ignore []string) (*runArgs, error) {
	ra := &runArgs{Resume: resume, Freq: -1}

	if resume {
		if len(args) < 1 || len(args) > 2 {
			return nil, &models.ArgumentError{Reason: fmt.Sprintf("恢复模式需要 DIR [FREQ], 得到%d个参数", len(args))}
		}
		if len(ignore) > 0 {
			return nil, &models.ArgumentError{Arg: "-i", Reason: "恢复模式沿用保存的忽略列表, 不能再指定"}
		}
		ra.Dir = args[0]
		if len(args) == 2 {
			freq, err := parseNonNegative("FREQ", args[1])
			if err != nil {
				return nil, err
			}
			ra.Freq = freq
		}
		return ra, validateDir(ra.Dir)
	}

	if len(args) < 3 || len(args) > 4 {
		return nil, &models.ArgumentError{Reason: fmt.Sprintf("需要 URL DIR BASE [FREQ], 得到%d个参数", len(args))}
	}
	if err := models.ValidateURL(args[0]); err != nil {
		return nil, &models.ArgumentError{Arg: "URL", Reason: err.Error()}
	}
	ra.URL = args[0]
	ra.Dir = args[1]
	if err := validateDir(ra.Dir); err != nil {
		return nil, err
	}

	base, err := parseNonNegative("BASE", args[2])
	if err != nil {
		return nil, err
	}
	ra.Base = base

	if len(args) == 4 {
		freq, err := parseNonNegative("FREQ", args[3])
		if err != nil {
			return nil, err
		}
		ra.Freq = freq
	}

	ra.Ignore = ignore
	return ra, nil
}

func parseNonNegative(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &models.ArgumentError{Arg: name, Reason: fmt.Sprintf("必须是整数: %q", value)}
	}
	if n < 0 {
		return 0, &models.ArgumentError{Arg: name, Reason: fmt.Sprintf("不能为负数: %d", n)}
	}
	return n, nil
}

func validateDir(dir string) error {
	if dir == "" {
		return &models.ArgumentError{Arg: "DIR", Reason: "输出目录不能为空"}
	}
	return nil
}
