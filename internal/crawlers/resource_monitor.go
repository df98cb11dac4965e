package crawlers

import (
	"fmt"
	"runtime"
	"time"

	"github.com/RecoveryAshes/SiteMirror/internal/utils"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const mb = 1024 * 1024

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64 // 安全保留内存(字节)
	SafetyThreshold     int64 // 安全阈值(字节)
	MaxWorkersLimit     int   // 绝对最大并发数
	WorkerMemoryUsage   int64 // 单个请求的平均内存消耗(字节)
}

// MemoryStatus 内存状态
type MemoryStatus struct {
	TotalMemory     uint64 // 系统总内存(字节)
	AvailableMemory int64  // 扣除安全保留后的可用内存(字节)
	MemoryPressure  string // normal / warning / critical
}

// ResourceMonitor 根据系统内存与CPU核数推算并发上限
// 仅在配置的并发数为0(自动)时使用
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 可替换的采样函数
	virtualMemory func() (*mem.VirtualMemoryStat, error)
	numCPU        func() int
}

// NewResourceMonitor 创建资源监控器
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.WorkerMemoryUsage <= 0 {
		config.WorkerMemoryUsage = 8 * mb
	}
	if config.MaxWorkersLimit <= 0 {
		config.MaxWorkersLimit = 64
	}
	return &ResourceMonitor{
		config:        config,
		virtualMemory: mem.VirtualMemory,
		numCPU:        runtime.NumCPU,
	}
}

// MemoryStatus 采样当前内存状态
func (rm *ResourceMonitor) MemoryStatus() (MemoryStatus, error) {
	vm, err := rm.virtualMemory()
	if err != nil {
		return MemoryStatus{}, fmt.Errorf("获取系统内存失败: %w", err)
	}

	available := int64(vm.Available) - rm.config.SafetyReserveMemory
	pressure := "normal"
	switch {
	case available < rm.config.SafetyThreshold/2:
		pressure = "critical"
	case available < rm.config.SafetyThreshold:
		pressure = "warning"
	}

	return MemoryStatus{
		TotalMemory:     vm.Total,
		AvailableMemory: available,
		MemoryPressure:  pressure,
	}, nil
}

// CalculateMaxWorkers 计算同时进行的请求数上限
// 取 内存余量/单请求内存、CPU核数*4、配置上限 三者最小值, 至少为1
func (rm *ResourceMonitor) CalculateMaxWorkers() int {
	byMemory := rm.config.MaxWorkersLimit
	status, err := rm.MemoryStatus()
	if err != nil {
		utils.Warnf("%v, 按配置上限计算并发数", err)
	} else {
		surplus := status.AvailableMemory - rm.config.SafetyThreshold
		byMemory = 1
		if surplus > 0 {
			byMemory = int(surplus / rm.config.WorkerMemoryUsage)
		}
		if status.MemoryPressure != "normal" {
			utils.Warnf("可用内存不足(当前%dMB), 并发数受限", status.AvailableMemory/mb)
		}
	}

	result := min(byMemory, rm.numCPU()*4, rm.config.MaxWorkersLimit)
	if result < 1 {
		result = 1
	}

	utils.Logger.Debug().
		Int("by_memory", byMemory).
		Int("cpus", rm.numCPU()).
		Int("limit", rm.config.MaxWorkersLimit).
		Int("workers", result).
		Msg("自动计算并发数")
	return result
}

// CPUUsage 采样整机CPU使用率(百分比), 失败时返回0
func (rm *ResourceMonitor) CPUUsage() float64 {
	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(percentages) == 0 {
		utils.Debugf("获取CPU使用率失败: %v", err)
		return 0
	}
	return percentages[0]
}

// LogStatus 输出一次资源概况
func (rm *ResourceMonitor) LogStatus() {
	status, err := rm.MemoryStatus()
	if err != nil {
		utils.Warnf("%v", err)
		return
	}
	utils.Logger.Info().
		Str("total", fmt.Sprintf("%.2f GB", float64(status.TotalMemory)/(1024*mb))).
		Int64("available_mb", status.AvailableMemory/mb).
		Str("pressure", status.MemoryPressure).
		Float64("cpu", rm.CPUUsage()).
		Msg("💻 系统资源")
}
