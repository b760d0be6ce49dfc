package routes

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/hubserve/internal/handle"
)

// SnapshotSource 提供 handle 的只读快照；*handle.Controller 满足该接口。
type SnapshotSource interface {
	Snapshot() handle.Snapshot
}

// RegisterDiagnosticsRoutes 暴露 /-/routes 诊断接口，列出当前 handle 已登记的路由与静态目录。
func RegisterDiagnosticsRoutes(app *fiber.App, source SnapshotSource) {
	if app == nil || source == nil {
		return
	}

	app.Get("/-/routes", func(c fiber.Ctx) error {
		snap := source.Snapshot()
		return c.JSON(encodeSnapshot(snap))
	})

	app.Get("/-/routes/:kind", func(c fiber.Ctx) error {
		kind := handle.RouteKind(strings.ToLower(strings.TrimSpace(c.Params("kind"))))
		if kind != handle.RouteKindJSON && kind != handle.RouteKindText {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "route_kind_not_found"})
		}
		snap := source.Snapshot()
		return c.JSON(fiber.Map{
			"kind":   kind,
			"routes": encodeRoutes(snap.Routes, kind),
		})
	})
}

type snapshotPayload struct {
	Running bool            `json:"running"`
	Port    int             `json:"port"`
	Routes  []routePayload  `json:"routes"`
	Static  []staticPayload `json:"static"`
}

type routePayload struct {
	Index       int    `json:"index"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Kind        string `json:"kind"`
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type,omitempty"`
}

type staticPayload struct {
	URLPath string `json:"url_path"`
	FSPath  string `json:"fs_path"`
}

func encodeSnapshot(snap handle.Snapshot) snapshotPayload {
	return snapshotPayload{
		Running: snap.Running,
		Port:    snap.Port,
		Routes:  encodeRoutes(snap.Routes, ""),
		Static:  encodeStatic(snap.Mounts),
	}
}

// encodeRoutes 保留插入顺序，index 即队列位置（路由只靠位置标识）；kind 为空时不过滤。
func encodeRoutes(routes []handle.RouteDefinition, kind handle.RouteKind) []routePayload {
	result := make([]routePayload, 0, len(routes))
	for i, route := range routes {
		if kind != "" && route.Kind != kind {
			continue
		}
		item := routePayload{
			Index:  i,
			Method: route.Method,
			Path:   route.Path,
			Kind:   string(route.Kind),
		}
		if route.Kind == handle.RouteKindText {
			item.StatusCode = fiber.StatusOK
			item.ContentType = route.ContentType
		} else {
			item.StatusCode = route.StatusCode
		}
		result = append(result, item)
	}
	return result
}

func encodeStatic(mounts []handle.StaticMount) []staticPayload {
	result := make([]staticPayload, 0, len(mounts))
	for _, mount := range mounts {
		result = append(result, staticPayload{URLPath: mount.URLPath, FSPath: mount.FSPath})
	}
	return result
}
