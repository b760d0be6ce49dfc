package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
// HTTP 方法名刻意不校验：非法方法在引擎应用路由时才报错。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort < 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 0-65535")
	}
	if g.LogMaxSize < 0 {
		return newFieldError("Global.LogMaxSize", "不能为负数")
	}
	if g.LogMaxBackups < 0 {
		return newFieldError("Global.LogMaxBackups", "不能为负数")
	}
	if g.ReadTimeout.DurationValue() < 0 {
		return newFieldError("Global.ReadTimeout", "不能为负数")
	}
	if g.WriteTimeout.DurationValue() < 0 {
		return newFieldError("Global.WriteTimeout", "不能为负数")
	}
	if g.IdleTimeout.DurationValue() < 0 {
		return newFieldError("Global.IdleTimeout", "不能为负数")
	}

	for i := range c.Routes {
		if err := validateRoute(i, c.Routes[i]); err != nil {
			return err
		}
	}
	for i := range c.Static {
		if err := validateStatic(i, c.Static[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateRoute(idx int, r RouteConfig) error {
	switch r.Kind {
	case "json":
		if r.StatusCode < 100 || r.StatusCode > 599 {
			return newFieldError(routeField(idx, "StatusCode"), "必须在 100-599")
		}
	case "text":
		if r.StatusCode != 0 && r.StatusCode != 200 {
			return newFieldError(routeField(idx, "StatusCode"), "文本路由固定返回 200")
		}
	case "":
		return newFieldError(routeField(idx, "Kind"), "不能为空")
	default:
		return newFieldError(routeField(idx, "Kind"), "仅支持 json/text")
	}
	if r.Method == "" {
		return newFieldError(routeField(idx, "Method"), "不能为空")
	}
	return validatePath(routeField(idx, "Path"), r.Path)
}

func validateStatic(idx int, s StaticConfig) error {
	if err := validatePath(staticField(idx, "URLPath"), s.URLPath); err != nil {
		return err
	}
	if strings.TrimSpace(s.FSPath) == "" {
		return newFieldError(staticField(idx, "FSPath"), "不能为空")
	}
	return nil
}

func validatePath(field, path string) error {
	if path == "" {
		return newFieldError(field, "不能为空")
	}
	if !strings.HasPrefix(path, "/") {
		return newFieldError(field, fmt.Sprintf("必须以 / 开头: %s", path))
	}
	if strings.Contains(path, " ") {
		return newFieldError(field, "不允许包含空格")
	}
	return nil
}
