package command

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/hubserve/internal/handle"
)

// Controller 是 Dispatcher 需要的 handle 操作面，*handle.Controller 满足该接口。
type Controller interface {
	Start(ctx context.Context, port int) (handle.StartResult, error)
	Stop(ctx context.Context) error
	AddJSONRoute(method, path string, body any, statusCode int) (handle.RouteSummary, error)
	AddTextRoute(method, path, text, contentType string) (handle.RouteSummary, error)
	AddStaticDir(urlPath, fsPath string) (handle.StaticMount, error)
	Port() (int, bool)
	URL() (string, bool)
	IsRunning() bool
}

// runner 执行一次已解码、已校验的调用。
type runner func(ctx context.Context, ctrl Controller, args map[string]any) (any, error)

// Dispatcher 把操作名映射到强类型请求/响应，并在边界完成解码与校验。
type Dispatcher struct {
	ctrl    Controller
	logger  *logrus.Logger
	runners map[string]runner
}

var validate = validator.New()

// NewDispatcher 构建命令分发表。
func NewDispatcher(ctrl Controller, logger *logrus.Logger) (*Dispatcher, error) {
	if ctrl == nil {
		return nil, errors.New("controller is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	d := &Dispatcher{
		ctrl:   ctrl,
		logger: logger,
		runners: map[string]runner{
			OpStart:        typed(runStart),
			OpStop:         typed(runStop),
			OpAddJSONRoute: typed(runAddJSONRoute),
			OpAddTextRoute: typed(runAddTextRoute),
			OpAddStaticDir: typed(runAddStaticDir),
			OpGetPort:      typed(runGetPort),
			OpGetURL:       typed(runGetURL),
			OpIsRunning:    typed(runIsRunning),
		},
	}
	for _, desc := range Catalog() {
		if _, ok := d.runners[desc.Name]; !ok {
			return nil, fmt.Errorf("operation %s has no runner", desc.Name)
		}
	}
	return d, nil
}

// Call 执行一个命令。返回的错误总是 *Error。
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	fields := logrus.Fields{
		"action":  "command",
		"op":      name,
		"call_id": uuid.NewString(),
	}

	if args == nil {
		args = map[string]any{}
	}

	desc, ok := Lookup(name)
	run, hasRunner := d.runners[name]
	if !ok || !hasRunner {
		err := newError(CodeUnknownOperation, "unknown operation %q", name)
		d.logger.WithFields(fields).Warn(err.Message)
		return nil, err
	}
	if err := checkRequired(desc, args); err != nil {
		d.logger.WithFields(fields).Warn(err.Message)
		return nil, err
	}

	result, err := run(ctx, d.ctrl, args)
	if err != nil {
		cmdErr := classify(err)
		fields["code"] = cmdErr.Code
		d.logger.WithFields(fields).Warn(cmdErr.Message)
		return nil, cmdErr
	}
	d.logger.WithFields(fields).Debug("command completed")
	return result, nil
}

// Catalog exposes the static descriptor table for discovery.
func (d *Dispatcher) Catalog() []Descriptor {
	return Catalog()
}

// checkRequired 只检查参数是否出现；值的合法性由 validator 负责。
func checkRequired(desc Descriptor, args map[string]any) *Error {
	for _, param := range desc.Params {
		if !param.Required {
			continue
		}
		if _, ok := args[param.Name]; !ok {
			return newError(CodeInvalidArguments, "%s: missing required argument %q", desc.Name, param.Name)
		}
	}
	return nil
}

// typed 把强类型处理函数包装为 runner：mapstructure 解码（拒绝未知参数）+ validator 校验。
func typed[Req any, Resp any](fn func(context.Context, Controller, Req) (Resp, error)) runner {
	return func(ctx context.Context, ctrl Controller, args map[string]any) (any, error) {
		var req Req
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		return fn(ctx, ctrl, req)
	}
}

func decodeArgs(args map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		DecodeHook:  integralNumberHook,
		Result:      out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(args); err != nil {
		return newError(CodeInvalidArguments, "%s", err.Error())
	}
	if err := validate.Struct(out); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// integralNumberHook 拒绝带小数部分的数字写入整型字段；mapstructure 默认会直接截断。
func integralNumberHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	if from.Kind() != reflect.Float32 && from.Kind() != reflect.Float64 {
		return data, nil
	}

	v := reflect.ValueOf(data).Float()
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return nil, fmt.Errorf("expected an integer, got %v", data)
	}
	return data, nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return newError(CodeInvalidArguments, "%s: validation failed on '%s' tag (value: %v)",
			lowerFirst(e.Field()), e.Tag(), e.Value())
	}
	return newError(CodeInvalidArguments, "%s", err.Error())
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func runStart(ctx context.Context, ctrl Controller, req StartRequest) (handle.StartResult, error) {
	return ctrl.Start(ctx, req.Port)
}

func runStop(ctx context.Context, ctrl Controller, _ noArgs) (any, error) {
	return nil, ctrl.Stop(ctx)
}

func runAddJSONRoute(_ context.Context, ctrl Controller, req AddJSONRouteRequest) (handle.RouteSummary, error) {
	return ctrl.AddJSONRoute(req.Method, req.Path, req.ResponseBody, req.StatusCode)
}

func runAddTextRoute(_ context.Context, ctrl Controller, req AddTextRouteRequest) (handle.RouteSummary, error) {
	return ctrl.AddTextRoute(req.Method, req.Path, req.ResponseText, req.ContentType)
}

func runAddStaticDir(_ context.Context, ctrl Controller, req AddStaticDirRequest) (handle.StaticMount, error) {
	return ctrl.AddStaticDir(req.URLPath, req.FSPath)
}

func runGetPort(_ context.Context, ctrl Controller, _ noArgs) (*int, error) {
	port, ok := ctrl.Port()
	if !ok {
		return nil, nil
	}
	return &port, nil
}

func runGetURL(_ context.Context, ctrl Controller, _ noArgs) (*string, error) {
	url, ok := ctrl.URL()
	if !ok {
		return nil, nil
	}
	return &url, nil
}

func runIsRunning(_ context.Context, ctrl Controller, _ noArgs) (bool, error) {
	return ctrl.IsRunning(), nil
}
