package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// Engine 描述 handle 依赖的 HTTP 引擎能力：按方法+路径注册处理器、挂载静态目录、
// 监听端口与关闭监听。控制器只面向该接口，测试中可注入假实现。
type Engine interface {
	Route(method, path string, handler fiber.Handler) error
	ServeStatic(prefix, dir string) error
	Listen(ctx context.Context, port int) (int, error)
	Close(ctx context.Context) error
}

// EngineFactory 在每次 start 时创建一个全新的引擎实例。
type EngineFactory func() (Engine, error)

// ErrInvalidMethod is matched by MethodError when the engine rejects an HTTP method.
var ErrInvalidMethod = errors.New("invalid http method")

// MethodError 在引擎应用路由时拒绝方法名（例如拼写错误）时返回。
type MethodError struct {
	Method string
	Path   string
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("invalid http method %q for %s", e.Method, e.Path)
}

// Is lets errors.Is(err, ErrInvalidMethod) match any MethodError.
func (e *MethodError) Is(target error) bool {
	return target == ErrInvalidMethod
}

// ErrNotListening is returned by Close when the engine never bound a socket.
var ErrNotListening = errors.New("engine is not listening")

// FiberEngine 基于 Fiber v3 实现 Engine。
// Fiber 的路由树在运行时重建并非线程安全：treeMu 让每个请求持有读锁，
// 监听后的 Add/Use + RebuildTree 持有写锁。
type FiberEngine struct {
	app    *fiber.App
	logger *logrus.Logger

	treeMu sync.RWMutex

	mu        sync.Mutex
	listening bool
	port      int
	serveErr  chan error
}

// NewFiberEngine 构建一个尚未监听的 Fiber 引擎实例。
func NewFiberEngine(opts AppOptions) (*FiberEngine, error) {
	app, err := NewApp(opts)
	if err != nil {
		return nil, err
	}
	return &FiberEngine{app: app, logger: opts.Logger}, nil
}

// NewFiberEngineFactory returns an EngineFactory producing fresh Fiber engines.
// setup runs on every new engine before it is handed to the caller, e.g. to
// attach diagnostics routes.
func NewFiberEngineFactory(opts AppOptions, setup func(*fiber.App)) EngineFactory {
	return func() (Engine, error) {
		engine, err := NewFiberEngine(opts)
		if err != nil {
			return nil, err
		}
		if setup != nil {
			setup(engine.App())
		}
		return engine, nil
	}
}

// App exposes the underlying Fiber application, mainly for tests and diagnostics.
func (e *FiberEngine) App() *fiber.App {
	return e.app
}

// Route 注册 method+path 处理器。Fiber 对未知方法会 panic，这里转换为 MethodError。
// 监听之后新增的路由需要重建路由树才会生效。
func (e *FiberEngine) Route(method, path string, handler fiber.Handler) (err error) {
	upper := strings.ToUpper(strings.TrimSpace(method))
	if upper == "" {
		return &MethodError{Method: method, Path: path}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = &MethodError{Method: method, Path: path}
		}
	}()

	e.mutateTree(func() {
		e.app.Add([]string{upper}, path, handler)
	})
	return nil
}

// ServeStatic 将 dir 挂载到 prefix 下，目录是否存在由 Fiber 在请求时判断。
func (e *FiberEngine) ServeStatic(prefix, dir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.mutateTree(func() {
		e.app.Use(prefix, static.New(dir))
	})
	return nil
}

// mutateTree 在写锁内修改路由栈；已监听时同步重建路由树。调用方需持有 e.mu。
func (e *FiberEngine) mutateTree(fn func()) {
	e.treeMu.Lock()
	defer e.treeMu.Unlock()

	fn()
	if e.listening {
		e.app.RebuildTree()
	}
}

// guardHandler 包装 fasthttp 入口，使请求与路由树重建互斥。
func (e *FiberEngine) guardHandler(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		e.treeMu.RLock()
		defer e.treeMu.RUnlock()
		next(ctx)
	}
}

// Listen 自行绑定端口（bind 错误同步返回），随后在后台 goroutine 中服务，
// 并等待 Fiber 完成启动后返回实际端口。
func (e *FiberEngine) Listen(ctx context.Context, port int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listening {
		return 0, errors.New("engine already listening")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return 0, err
	}

	ready := make(chan struct{})
	var once sync.Once
	e.app.Hooks().OnListen(func(fiber.ListenData) error {
		once.Do(func() { close(ready) })
		return nil
	})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- e.app.Listener(ln, fiber.ListenConfig{
			DisableStartupMessage: true,
			BeforeServeFunc: func(app *fiber.App) error {
				srv := app.Server()
				srv.Handler = e.guardHandler(srv.Handler)
				return nil
			},
		})
	}()

	select {
	case <-ready:
	case err := <-serveErr:
		_ = ln.Close()
		if err == nil {
			err = errors.New("engine stopped before listening")
		}
		return 0, err
	case <-ctx.Done():
		_ = e.app.Shutdown()
		_ = ln.Close()
		return 0, ctx.Err()
	}

	resolved := ln.Addr().(*net.TCPAddr).Port
	e.listening = true
	e.port = resolved
	e.serveErr = serveErr

	e.logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   resolved,
	}).Debug("Fiber engine listening")
	return resolved, nil
}

// Close 优雅关闭监听并等待服务循环退出；失败时保持 listening 以便重试。
func (e *FiberEngine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.listening {
		return ErrNotListening
	}
	if err := e.app.ShutdownWithContext(ctx); err != nil {
		return err
	}

	select {
	case err := <-e.serveErr:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			e.logger.WithFields(logrus.Fields{
				"action": "serve_exit",
				"port":   e.port,
			}).Warn(err.Error())
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	e.listening = false
	e.port = 0
	e.serveErr = nil
	return nil
}
