package handle

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/hubserve/internal/server"
)

// fakeEngine 记录所有调用，不打开任何套接字。
type fakeEngine struct {
	mu       sync.Mutex
	calls    []string
	listenAt int
	listenFn func(port int) (int, error)
	closeErr error
	closed   int
}

func (f *fakeEngine) Route(method, path string, _ fiber.Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch strings.ToUpper(method) {
	case "GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS":
	default:
		return &server.MethodError{Method: method, Path: path}
	}
	f.calls = append(f.calls, "route "+method+" "+path)
	return nil
}

func (f *fakeEngine) ServeStatic(prefix, dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "static "+prefix+" "+dir)
	return nil
}

func (f *fakeEngine) Listen(_ context.Context, port int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listenFn != nil {
		return f.listenFn(port)
	}
	f.calls = append(f.calls, "listen")
	if port == 0 {
		port = 49152
	}
	f.listenAt = port
	return port, nil
}

func (f *fakeEngine) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closeErr != nil {
		return f.closeErr
	}
	f.closed++
	f.calls = append(f.calls, "close")
	return nil
}

func (f *fakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeFactory 记录工厂创建过的所有引擎，configure 可在返回前调整实例。
type fakeFactory struct {
	engines   []*fakeEngine
	configure func(*fakeEngine)
	err       error
}

func (f *fakeFactory) New() (server.Engine, error) {
	if f.err != nil {
		return nil, f.err
	}
	engine := &fakeEngine{}
	if f.configure != nil {
		f.configure(engine)
	}
	f.engines = append(f.engines, engine)
	return engine, nil
}

func (f *fakeFactory) Last() *fakeEngine {
	if len(f.engines) == 0 {
		return nil
	}
	return f.engines[len(f.engines)-1]
}

var errCloseFailed = errors.New("socket stuck")

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
