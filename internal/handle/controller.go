package handle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/hubserve/internal/logging"
	"github.com/any-hub/hubserve/internal/server"
)

// Options 描述 Controller 的依赖；引擎通过工厂注入，便于测试替换。
type Options struct {
	Factory server.EngineFactory
	Logger  *logrus.Logger
	// Reserved 标记引擎内置处理器占用的路径（例如 /-/ 诊断路由）。
	// 命中的注册仍会排队，但会被内置路由遮蔽，此时记录告警。
	Reserved func(path string) bool
}

// StartResult is returned by Start.
type StartResult struct {
	Port int    `json:"port"`
	URL  string `json:"url"`
}

// Controller 是对外的操作面：维护 State 中的队列，运行时立即把新注册项应用到引擎，
// 未运行时缓存到 start 再重放。所有公开操作由 opMu 串行化。
type Controller struct {
	opMu     sync.Mutex
	state    *State
	factory  server.EngineFactory
	logger   *logrus.Logger
	reserved func(path string) bool
}

// New 创建 Controller，Factory 与 Logger 均为必填。
func New(opts Options) (*Controller, error) {
	if opts.Factory == nil {
		return nil, errors.New("engine factory is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Controller{
		state:    NewState(),
		factory:  opts.Factory,
		logger:   opts.Logger,
		reserved: opts.Reserved,
	}, nil
}

// Start 创建新的引擎实例，按插入顺序重放所有路由与静态挂载，然后绑定端口。
// port 为 0 时由系统分配。任何失败都不会留下运行状态。
func (c *Controller) Start(ctx context.Context, port int) (StartResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.state.Running() {
		return StartResult{}, ErrAlreadyRunning
	}

	engine, err := c.factory()
	if err != nil {
		return StartResult{}, fmt.Errorf("create engine: %w", err)
	}

	routes, mounts := c.state.queues()
	for _, route := range routes {
		if err := applyRoute(engine, route); err != nil {
			return StartResult{}, err
		}
	}
	for _, mount := range mounts {
		if err := engine.ServeStatic(mount.URLPath, mount.FSPath); err != nil {
			return StartResult{}, fmt.Errorf("mount %s: %w", mount.URLPath, err)
		}
	}
	c.logger.WithFields(logrus.Fields{
		"action": "replay",
		"routes": len(routes),
		"static": len(mounts),
	}).Debug("queue replayed")

	bound, err := engine.Listen(ctx, port)
	if err != nil {
		return StartResult{}, &BindError{Port: port, Err: err}
	}
	c.state.markRunning(engine, bound)

	result := StartResult{Port: bound, URL: baseURL(bound)}
	c.logger.WithFields(logrus.Fields{
		"action": "start",
		"port":   bound,
		"url":    result.URL,
	}).Info("server started")
	return result, nil
}

// Stop 关闭当前引擎；未运行时直接返回。关闭失败时保留引擎与 running 标记，
// 调用方可以再次 Stop。路由与静态挂载队列不会被清空。
func (c *Controller) Stop(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	engine, running := c.state.liveEngine()
	if !running {
		return nil
	}
	port, _ := c.state.Port()

	if err := engine.Close(ctx); err != nil {
		c.logger.WithFields(logrus.Fields{
			"action": "stop",
			"port":   port,
		}).Error(err.Error())
		return &StopError{Err: err}
	}
	c.state.markStopped()

	c.logger.WithFields(logrus.Fields{
		"action": "stop",
		"port":   port,
	}).Info("server stopped")
	return nil
}

// AddJSONRoute 追加 JSON 路由；运行中则同步应用到引擎。方法名不在此校验，
// 非法方法会在应用时以 server.MethodError 返回，路由仍保留在队列中。
func (c *Controller) AddJSONRoute(method, path string, body any, statusCode int) (RouteSummary, error) {
	return c.addRoute(NewJSONRoute(method, path, body, statusCode))
}

// AddTextRoute 追加文本路由，语义同 AddJSONRoute。
func (c *Controller) AddTextRoute(method, path, text, contentType string) (RouteSummary, error) {
	return c.addRoute(NewTextRoute(method, path, text, contentType))
}

func (c *Controller) addRoute(route RouteDefinition) (RouteSummary, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	engine, running := c.state.appendRoute(route)
	fields := logging.RouteFields(route.Method, route.Path, string(route.Kind), running)
	c.warnIfReserved(route.Path, fields)
	if running {
		if err := applyRoute(engine, route); err != nil {
			c.logger.WithFields(fields).Warn(err.Error())
			return route.Summary(), err
		}
	}
	c.logger.WithFields(fields).Debug("route registered")
	return route.Summary(), nil
}

// AddStaticDir 追加静态目录挂载；运行中则同步挂载，返回前保证已生效。
func (c *Controller) AddStaticDir(urlPath, fsPath string) (StaticMount, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	mount := StaticMount{URLPath: urlPath, FSPath: fsPath}
	engine, running := c.state.appendMount(mount)
	fields := logrus.Fields{
		"action":   "static_add",
		"url_path": urlPath,
		"fs_path":  fsPath,
		"live":     running,
	}
	c.warnIfReserved(urlPath, fields)
	if running {
		if err := engine.ServeStatic(urlPath, fsPath); err != nil {
			c.logger.WithFields(fields).Warn(err.Error())
			return mount, fmt.Errorf("mount %s: %w", urlPath, err)
		}
	}
	c.logger.WithFields(fields).Debug("static dir registered")
	return mount, nil
}

// Port 返回当前端口；未运行时第二个返回值为 false。
func (c *Controller) Port() (int, bool) {
	return c.state.Port()
}

// URL 返回 http://localhost:<port>；未绑定端口时第二个返回值为 false。
func (c *Controller) URL() (string, bool) {
	port, ok := c.state.Port()
	if !ok {
		return "", false
	}
	return baseURL(port), true
}

// IsRunning reports the running flag.
func (c *Controller) IsRunning() bool {
	return c.state.Running()
}

// Snapshot returns a copy of the lifecycle state and both queues.
func (c *Controller) Snapshot() Snapshot {
	return c.state.Snapshot()
}

// warnIfReserved 提示该注册会被内置路由遮蔽（Fiber 按注册顺序取第一个匹配）。
func (c *Controller) warnIfReserved(path string, fields logrus.Fields) {
	if c.reserved == nil || !c.reserved(path) {
		return
	}
	c.logger.WithFields(fields).Warn("path is reserved by a built-in handler and will be shadowed")
}

func applyRoute(engine server.Engine, route RouteDefinition) error {
	return engine.Route(route.Method, route.Path, route.Handler())
}

func baseURL(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}
