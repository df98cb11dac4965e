package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/SiteMirror/internal/core"
	"github.com/RecoveryAshes/SiteMirror/internal/models"
	"github.com/RecoveryAshes/SiteMirror/internal/utils"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string
	noColor    bool

	// HTTP头部参数
	headers []string

	// run 参数
	resume       bool
	ignore       []string
	maxWorkers   int
	showProgress bool
	insecure     bool
)

// appConfig 由 PersistentPreRunE 加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "sitemirror",
	Short: "网站镜像工具",
	Long: `SiteMirror - 可恢复的并发网站镜像工具

从种子页面出发, 递归下载范围内的HTML页面及其引用的图片、脚本和样式表,
按远程路径结构保存到本地. 中断或部分失败的任务可以恢复.

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		logConfig := config.LogConfig()
		logConfig.NoColor = noColor
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if verbose {
			logConfig.Level = "debug"
		}
		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		appConfig = config
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run URL DIR BASE [FREQ] [-i PREFIX]... | run -a DIR [FREQ]",
	Short: "镜像网站或恢复上次的任务",
	Long: `镜像网站或恢复上次的任务

  URL    种子页面 (http/https)
  DIR    输出目录, 不存在时自动创建
  BASE   范围深度: 保留种子路径的前BASE段作为范围前缀
  FREQ   每次派发前的固定延迟(毫秒), 可选
  -i     相对范围前缀的忽略路径, 可多次指定
  -a     从 DIR 中保存的状态恢复, 只重试上次失败的URL`,
	Example: `  sitemirror run https://example.com/docs/guide/ ./mirror 1
  sitemirror run https://example.com/docs/ ./mirror 1 200 -i private -i drafts/old
  sitemirror run -a ./mirror 200`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ra, err := parseRunArgs(args, resume, ignore)
		if err != nil {
			cmd.Usage()
			return err
		}
		if err := appConfig.MergeCLIFlags(maxWorkers, ra.Freq); err != nil {
			return &models.ArgumentError{Reason: err.Error()}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		headerManager, err := core.NewHeaderManager(appConfig.Headers, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		opts := core.Options{
			OutputDir:    ra.Dir,
			Crawl:        appConfig.Crawl,
			Resource:     appConfig.ResourceMonitorConfig(),
			ShowProgress: showProgress,
		}
		fetcher := core.NewFetcher(ctx, appConfig.Crawl, insecure, headerManager)
		fs := afero.NewOsFs()

		var mirror *core.Mirror
		if ra.Resume {
			mirror, err = core.ResumeMirror(fs, fetcher, opts)
		} else {
			mirror, err = core.NewMirror(fs, fetcher, ra.URL, ra.Base, ra.Ignore, opts)
		}
		if err != nil {
			var ae *models.ArgumentError
			if errors.As(err, &ae) {
				cmd.Usage()
			}
			return err
		}

		if _, err := mirror.Run(ctx); err != nil {
			return err
		}

		utils.Info("✨ 镜像任务完成!")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("SiteMirror %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式 (等同 --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "禁用控制台颜色")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")

	// run 参数
	runCmd.Flags().BoolVarP(&resume, "resume", "a", false, "从输出目录中保存的状态恢复")
	runCmd.Flags().StringArrayVarP(&ignore, "ignore", "i", []string{}, "忽略路径(相对范围前缀),可多次指定")
	runCmd.Flags().IntVar(&maxWorkers, "workers", -1, "同时进行的请求数, 0表示按系统资源自动计算 (默认取配置文件)")
	runCmd.Flags().BoolVar(&showProgress, "progress", false, "资源阶段显示进度条")
	runCmd.Flags().BoolVar(&insecure, "insecure", false, "跳过TLS证书验证")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		if errors.Is(err, core.ErrInterrupted) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
