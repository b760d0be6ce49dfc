package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/hubserve/internal/command"
	"github.com/any-hub/hubserve/internal/config"
	"github.com/any-hub/hubserve/internal/handle"
	"github.com/any-hub/hubserve/internal/logging"
	"github.com/any-hub/hubserve/internal/mcpserver"
	"github.com/any-hub/hubserve/internal/server"
	"github.com/any-hub/hubserve/internal/server/routes"
	"github.com/any-hub/hubserve/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	mcpMode     bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

// shutdownTimeout 限制收到信号后的优雅关闭时间。
const shutdownTimeout = 10 * time.Second

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}
	// stdout 是 MCP 传输通道，日志只能写到文件或 stderr。
	if opts.mcpMode && cfg.Global.LogFilePath == "" {
		logger.SetOutput(stdErr)
		logrus.SetOutput(stdErr)
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["routes"] = config.RouteKinds(cfg.Routes)
		fields["static"] = len(cfg.Static)
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	ctrl, err := buildController(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化服务句柄失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["routes"] = config.RouteKinds(cfg.Routes)
	fields["static"] = len(cfg.Static)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["mcp"] = opts.mcpMode
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.mcpMode {
		err = serveMCP(ctrl, logger)
	} else {
		err = serveHTTP(ctx, ctrl, cfg.Global.ListenPort, logger)
	}
	if err != nil {
		fmt.Fprintf(stdErr, "服务运行失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("hubserve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
		mcpMode    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 HUBSERVE_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.BoolVar(&mcpMode, "mcp", false, "通过 stdio 提供 MCP 控制接口，不自动启动 HTTP 服务")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("HUBSERVE_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		mcpMode:     mcpMode,
	}, nil
}

// buildController 组装“配置 → 引擎工厂 → handle”，并把配置中的路由与静态目录预先排队。
// 每次 start 都会通过工厂创建新的 Fiber 实例，诊断路由在工厂中挂载。
func buildController(cfg *config.Config, logger *logrus.Logger) (*handle.Controller, error) {
	var ctrl *handle.Controller

	var (
		setup    func(*fiber.App)
		reserved func(string) bool
	)
	if cfg.Global.Diagnostics {
		setup = func(app *fiber.App) {
			routes.RegisterDiagnosticsRoutes(app, ctrl)
		}
		reserved = server.IsDiagnosticsPath
	}

	factory := server.NewFiberEngineFactory(server.AppOptions{
		Logger:       logger,
		ReadTimeout:  cfg.Global.ReadTimeout.DurationValue(),
		WriteTimeout: cfg.Global.WriteTimeout.DurationValue(),
		IdleTimeout:  cfg.Global.IdleTimeout.DurationValue(),
	}, setup)

	ctrl, err := handle.New(handle.Options{Factory: factory, Logger: logger, Reserved: reserved})
	if err != nil {
		return nil, err
	}

	for _, route := range cfg.Routes {
		switch route.Kind {
		case string(handle.RouteKindJSON):
			_, err = ctrl.AddJSONRoute(route.Method, route.Path, route.Payload, route.StatusCode)
		default:
			_, err = ctrl.AddTextRoute(route.Method, route.Path, route.Text, route.ContentType)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, mount := range cfg.Static {
		if _, err := ctrl.AddStaticDir(mount.URLPath, mount.FSPath); err != nil {
			return nil, err
		}
	}
	return ctrl, nil
}

// serveHTTP 启动服务并阻塞到 ctx 结束，然后在限定时间内关闭。
func serveHTTP(ctx context.Context, ctrl *handle.Controller, port int, logger *logrus.Logger) error {
	result, err := ctrl.Start(ctx, port)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   result.Port,
		"url":    result.URL,
	}).Info("Fiber 服务启动")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return ctrl.Stop(shutdownCtx)
}

// serveMCP 通过 stdio 暴露命令目录，stdin 关闭后停止仍在运行的服务。
func serveMCP(ctrl *handle.Controller, logger *logrus.Logger) error {
	dispatcher, err := command.NewDispatcher(ctrl, logger)
	if err != nil {
		return err
	}
	srv := mcpserver.NewServer(dispatcher, version.Version)
	serveErr := srv.ServeStdio()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := ctrl.Stop(shutdownCtx); err != nil {
		return err
	}
	return serveErr
}
