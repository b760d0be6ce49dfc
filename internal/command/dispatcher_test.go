package command

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"syscall"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/any-hub/hubserve/internal/handle"
	"github.com/any-hub/hubserve/internal/server"
)

// stubController 记录最近一次调用的参数，并按需返回预设错误。
type stubController struct {
	running  bool
	port     int
	startErr error
	stopErr  error
	routeErr error

	lastPort        int
	lastMethod      string
	lastPath        string
	lastBody        any
	lastStatus      int
	lastText        string
	lastContentType string
	lastMount       handle.StaticMount
}

func (s *stubController) Start(_ context.Context, port int) (handle.StartResult, error) {
	s.lastPort = port
	if s.startErr != nil {
		return handle.StartResult{}, s.startErr
	}
	if port == 0 {
		port = 40000
	}
	s.running, s.port = true, port
	return handle.StartResult{Port: port, URL: "http://localhost:40000"}, nil
}

func (s *stubController) Stop(context.Context) error {
	if s.stopErr != nil {
		return s.stopErr
	}
	s.running, s.port = false, 0
	return nil
}

func (s *stubController) AddJSONRoute(method, path string, body any, statusCode int) (handle.RouteSummary, error) {
	s.lastMethod, s.lastPath, s.lastBody, s.lastStatus = method, path, body, statusCode
	route := handle.NewJSONRoute(method, path, body, statusCode)
	return route.Summary(), s.routeErr
}

func (s *stubController) AddTextRoute(method, path, text, contentType string) (handle.RouteSummary, error) {
	s.lastMethod, s.lastPath, s.lastText, s.lastContentType = method, path, text, contentType
	route := handle.NewTextRoute(method, path, text, contentType)
	return route.Summary(), s.routeErr
}

func (s *stubController) AddStaticDir(urlPath, fsPath string) (handle.StaticMount, error) {
	s.lastMount = handle.StaticMount{URLPath: urlPath, FSPath: fsPath}
	return s.lastMount, nil
}

func (s *stubController) Port() (int, bool) { return s.port, s.running }

func (s *stubController) URL() (string, bool) {
	if !s.running {
		return "", false
	}
	return "http://localhost:40000", true
}

func (s *stubController) IsRunning() bool { return s.running }

func newTestDispatcher(t *testing.T, ctrl Controller) *Dispatcher {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	d, err := NewDispatcher(ctrl, logger)
	require.NoError(t, err)
	return d
}

func requireCode(t *testing.T, err error, code Code) {
	t.Helper()
	var cmdErr *Error
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, code, cmdErr.Code, cmdErr.Message)
}

func TestNewDispatcherRequiresDependencies(t *testing.T) {
	_, err := NewDispatcher(nil, logrus.New())
	assert.Error(t, err)
	_, err = NewDispatcher(&stubController{}, nil)
	assert.Error(t, err)
}

func TestCallUnknownOperation(t *testing.T) {
	d := newTestDispatcher(t, &stubController{})
	_, err := d.Call(context.Background(), "restart", nil)
	requireCode(t, err, CodeUnknownOperation)
}

func TestCallStartDefaultsPortToZero(t *testing.T) {
	ctrl := &stubController{}
	d := newTestDispatcher(t, ctrl)

	result, err := d.Call(context.Background(), OpStart, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ctrl.lastPort)
	assert.Equal(t, handle.StartResult{Port: 40000, URL: "http://localhost:40000"}, result)
}

func TestCallStartAcceptsJSONNumbers(t *testing.T) {
	ctrl := &stubController{}
	d := newTestDispatcher(t, ctrl)

	var args map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"port": 8088}`), &args))

	_, err := d.Call(context.Background(), OpStart, args)
	require.NoError(t, err)
	assert.Equal(t, 8088, ctrl.lastPort)
}

func TestCallStartRejectsBadArguments(t *testing.T) {
	d := newTestDispatcher(t, &stubController{})

	_, err := d.Call(context.Background(), OpStart, map[string]any{"port": 70000})
	requireCode(t, err, CodeInvalidArguments)

	_, err = d.Call(context.Background(), OpStart, map[string]any{"port": "80"})
	requireCode(t, err, CodeInvalidArguments)

	_, err = d.Call(context.Background(), OpStart, map[string]any{"host": "0.0.0.0"})
	requireCode(t, err, CodeInvalidArguments)
}

func TestCallRejectsFractionalIntegers(t *testing.T) {
	ctrl := &stubController{}
	d := newTestDispatcher(t, ctrl)

	_, err := d.Call(context.Background(), OpStart, map[string]any{"port": 8080.7})
	requireCode(t, err, CodeInvalidArguments)
	assert.False(t, ctrl.running, "start must not be forwarded")

	_, err = d.Call(context.Background(), OpAddJSONRoute, map[string]any{
		"method":       "GET",
		"path":         "/x",
		"responseBody": map[string]any{},
		"statusCode":   201.9,
	})
	requireCode(t, err, CodeInvalidArguments)
	assert.Empty(t, ctrl.lastPath, "route must not be forwarded")

	_, err = d.Call(context.Background(), OpAddJSONRoute, map[string]any{
		"method":       "GET",
		"path":         "/x",
		"responseBody": map[string]any{"ratio": 0.5},
		"statusCode":   201.0,
	})
	require.NoError(t, err, "whole floats and fractional values inside the body are accepted")
	assert.Equal(t, 201, ctrl.lastStatus)
	assert.Equal(t, map[string]any{"ratio": 0.5}, ctrl.lastBody)
}

func TestCallMapsControllerErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code Code
	}{
		{"already running", handle.ErrAlreadyRunning, CodeAlreadyRunning},
		{"bind", &handle.BindError{Port: 80, Err: syscall.EACCES}, CodeBindError},
		{"invalid method", &server.MethodError{Method: "fetch", Path: "/"}, CodeInvalidMethod},
		{"other", errors.New("boom"), CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newTestDispatcher(t, &stubController{startErr: tc.err})
			_, err := d.Call(context.Background(), OpStart, map[string]any{"port": 80})
			requireCode(t, err, tc.code)
		})
	}
}

func TestCallStopError(t *testing.T) {
	d := newTestDispatcher(t, &stubController{running: true, stopErr: &handle.StopError{Err: errors.New("stuck")}})
	_, err := d.Call(context.Background(), OpStop, nil)
	requireCode(t, err, CodeStopError)
}

func TestCallAddJSONRoute(t *testing.T) {
	ctrl := &stubController{}
	d := newTestDispatcher(t, ctrl)

	result, err := d.Call(context.Background(), OpAddJSONRoute, map[string]any{
		"method":       "GET",
		"path":         "/api/health",
		"responseBody": map[string]any{"status": "ok"},
	})
	require.NoError(t, err)
	assert.Equal(t, handle.RouteSummary{Method: "get", Path: "/api/health", Kind: handle.RouteKindJSON}, result)
	assert.Equal(t, map[string]any{"status": "ok"}, ctrl.lastBody)
	assert.Equal(t, 0, ctrl.lastStatus, "default status is resolved by the handle")

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"get","path":"/api/health","kind":"json"}`, string(encoded))
}

func TestCallAddJSONRouteRequiresBody(t *testing.T) {
	d := newTestDispatcher(t, &stubController{})
	_, err := d.Call(context.Background(), OpAddJSONRoute, map[string]any{
		"method": "GET",
		"path":   "/api/health",
	})
	requireCode(t, err, CodeInvalidArguments)
}

func TestCallAddJSONRouteRejectsBadStatus(t *testing.T) {
	d := newTestDispatcher(t, &stubController{})
	_, err := d.Call(context.Background(), OpAddJSONRoute, map[string]any{
		"method":       "GET",
		"path":         "/x",
		"responseBody": nil,
		"statusCode":   42,
	})
	requireCode(t, err, CodeInvalidArguments)
}

func TestCallAddTextRouteAllowsEmptyText(t *testing.T) {
	ctrl := &stubController{}
	d := newTestDispatcher(t, ctrl)

	result, err := d.Call(context.Background(), OpAddTextRoute, map[string]any{
		"method":       "POST",
		"path":         "/hello",
		"responseText": "",
	})
	require.NoError(t, err)
	assert.Equal(t, handle.RouteKindText, result.(handle.RouteSummary).Kind)
	assert.Equal(t, "", ctrl.lastContentType, "default content type is resolved by the handle")
}

func TestCallAddTextRouteDoesNotValidateMethod(t *testing.T) {
	ctrl := &stubController{}
	d := newTestDispatcher(t, ctrl)

	_, err := d.Call(context.Background(), OpAddTextRoute, map[string]any{
		"method":       "FETCH",
		"path":         "/hello",
		"responseText": "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "FETCH", ctrl.lastMethod)
}

func TestCallAddStaticDir(t *testing.T) {
	ctrl := &stubController{}
	d := newTestDispatcher(t, ctrl)

	result, err := d.Call(context.Background(), OpAddStaticDir, map[string]any{
		"urlPath": "/static",
		"fsPath":  "/srv/www",
	})
	require.NoError(t, err)
	assert.Equal(t, handle.StaticMount{URLPath: "/static", FSPath: "/srv/www"}, result)

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"urlPath":"/static","fsPath":"/srv/www"}`, string(encoded))

	_, err = d.Call(context.Background(), OpAddStaticDir, map[string]any{"urlPath": "/static", "fsPath": ""})
	requireCode(t, err, CodeInvalidArguments)
}

func TestAccessorsSerializeNullWhenStopped(t *testing.T) {
	d := newTestDispatcher(t, &stubController{})

	for _, op := range []string{OpGetPort, OpGetURL} {
		result, err := d.Call(context.Background(), op, nil)
		require.NoError(t, err)
		encoded, err := json.Marshal(result)
		require.NoError(t, err)
		assert.Equal(t, "null", string(encoded), op)
	}

	running, err := d.Call(context.Background(), OpIsRunning, nil)
	require.NoError(t, err)
	assert.Equal(t, false, running)
}

func TestAccessorsWhenRunning(t *testing.T) {
	d := newTestDispatcher(t, &stubController{running: true, port: 40000})

	port, err := d.Call(context.Background(), OpGetPort, nil)
	require.NoError(t, err)
	encoded, _ := json.Marshal(port)
	assert.Equal(t, "40000", string(encoded))

	url, err := d.Call(context.Background(), OpGetURL, nil)
	require.NoError(t, err)
	encoded, _ = json.Marshal(url)
	assert.Equal(t, `"http://localhost:40000"`, string(encoded))
}
