package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/betbot/gosra/internal/relayer"
	"github.com/betbot/gosra/pkg/config"
	"github.com/betbot/gosra/pkg/logger"
	"github.com/betbot/gosra/pkg/shutdown"
)

func main() {
	// .env 可选，不存在时直接用环境变量
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
	os.Exit(run(context.Background(), os.Args[1:]))
}

// run 启动 relayer 并阻塞到收到信号或 ctx 结束，返回进程退出码
func run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("sra-relayer", flag.ContinueOnError)
	var (
		configPath = fs.String("config", os.Getenv("SRA_CONFIG"), "YAML 配置文件路径")
		listenAddr = fs.String("listen", "", "HTTP 监听地址（覆盖配置）")
		dbPath     = fs.String("db", "", "SQLite 文件路径，:memory: 为内存库（覆盖配置）")
		networkID  = fs.Int("network-id", 0, "服务的 networkId（覆盖配置）")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		return 1
	}
	if *listenAddr != "" {
		cfg.Relayer.Listen = *listenAddr
	}
	if *dbPath != "" {
		cfg.Relayer.DBPath = *dbPath
	}
	if *networkID > 0 {
		cfg.Relayer.NetworkID = *networkID
	}

	if err := logger.Init(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		return 1
	}
	// 所有返回路径都要刷日志文件，调用方随后 os.Exit
	defer logger.Close()
	if f := logger.GetCurrentLogFile(); f != "" {
		logger.Infof("日志文件: %s", f)
	}

	srv, err := relayer.New(cfg.Relayer.RelayerServerConfig(logger.Component("relayer")))
	if err != nil {
		logger.Errorf("初始化 relayer 失败: %v", err)
		return 1
	}

	httpSrv := &http.Server{
		Addr:              cfg.Relayer.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sm := shutdown.NewManager()
	// 先停 HTTP 再关 ws 和数据库
	sm.OnShutdown("relayer", func(ctx context.Context) error {
		if err := httpSrv.Shutdown(ctx); err != nil {
			_ = srv.Close()
			return err
		}
		return srv.Close()
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("relayer listening on %s (networkId=%d, db=%s)", cfg.Relayer.Listen, cfg.Relayer.NetworkID, cfg.Relayer.DBPath)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	code := 0
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		select {
		case err := <-serveErr:
			logger.Errorf("http server error: %v", err)
			code = 1
			stop()
		case <-ctx.Done():
		}
	}()

	if sig := shutdown.WaitForSignal(ctx); sig != nil {
		logger.Infof("收到信号 %s，开始关闭", sig)
	}
	stop()
	<-watchDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sm.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("关闭未完全成功: %v", err)
	}
	logger.Info("relayer stopped")
	return code
}
