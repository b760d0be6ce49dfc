package handle

import (
	"strings"

	"github.com/gofiber/fiber/v3"
)

// RouteKind 区分 JSON 与纯文本两类静态响应路由。
type RouteKind string

const (
	RouteKindJSON RouteKind = "json"
	RouteKindText RouteKind = "text"
)

const (
	defaultStatusCode  = fiber.StatusOK
	defaultContentType = "text/plain"
)

// RouteDefinition 是单个静态响应端点的声明式描述，创建后不可变。
// 同一 method+path 可以重复注册，运行时由引擎决定生效顺序。
type RouteDefinition struct {
	Kind   RouteKind
	Method string
	Path   string
	// Body/StatusCode 仅对 JSON 路由有效。
	Body       any
	StatusCode int
	// Text/ContentType 仅对文本路由有效，状态码固定为 200。
	Text        string
	ContentType string
}

// NewJSONRoute 构建 JSON 路由；method 统一转小写，statusCode 为 0 时使用 200。
func NewJSONRoute(method, path string, body any, statusCode int) RouteDefinition {
	if statusCode == 0 {
		statusCode = defaultStatusCode
	}
	return RouteDefinition{
		Kind:       RouteKindJSON,
		Method:     normalizeMethod(method),
		Path:       path,
		Body:       body,
		StatusCode: statusCode,
	}
}

// NewTextRoute 构建文本路由；contentType 为空时使用 text/plain。
func NewTextRoute(method, path, text, contentType string) RouteDefinition {
	if strings.TrimSpace(contentType) == "" {
		contentType = defaultContentType
	}
	return RouteDefinition{
		Kind:        RouteKindText,
		Method:      normalizeMethod(method),
		Path:        path,
		Text:        text,
		ContentType: contentType,
	}
}

// Handler 把声明式描述转换为引擎处理器，请求期间不做任何计算。
func (r RouteDefinition) Handler() fiber.Handler {
	switch r.Kind {
	case RouteKindText:
		text, contentType := r.Text, r.ContentType
		return func(c fiber.Ctx) error {
			c.Set(fiber.HeaderContentType, contentType)
			return c.Status(fiber.StatusOK).SendString(text)
		}
	default:
		body, status := r.Body, r.StatusCode
		return func(c fiber.Ctx) error {
			return c.Status(status).JSON(body)
		}
	}
}

// Summary 返回 add*Route 操作对外暴露的摘要。
func (r RouteDefinition) Summary() RouteSummary {
	return RouteSummary{Method: r.Method, Path: r.Path, Kind: r.Kind}
}

// RouteSummary is the serializable result of registering a route.
type RouteSummary struct {
	Method string    `json:"method"`
	Path   string    `json:"path"`
	Kind   RouteKind `json:"kind"`
}

// StaticMount 将文件系统目录暴露在 URL 前缀下，注册时不检查目录是否存在。
type StaticMount struct {
	URLPath string `json:"urlPath"`
	FSPath  string `json:"fsPath"`
}

func normalizeMethod(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}
