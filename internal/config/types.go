package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述 handle 与引擎的全局运行参数。
type GlobalConfig struct {
	// ListenPort 为 0 时由系统分配空闲端口。
	ListenPort    int      `mapstructure:"ListenPort"`
	LogLevel      string   `mapstructure:"LogLevel"`
	LogFilePath   string   `mapstructure:"LogFilePath"`
	LogMaxSize    int      `mapstructure:"LogMaxSize"`
	LogMaxBackups int      `mapstructure:"LogMaxBackups"`
	LogCompress   bool     `mapstructure:"LogCompress"`
	ReadTimeout   Duration `mapstructure:"ReadTimeout"`
	WriteTimeout  Duration `mapstructure:"WriteTimeout"`
	IdleTimeout   Duration `mapstructure:"IdleTimeout"`
	// Diagnostics 控制是否在每个引擎实例上暴露 /-/routes。
	Diagnostics bool `mapstructure:"Diagnostics"`
}

// RouteConfig 对应 [[Route]]，启动前预先注册到 handle。
type RouteConfig struct {
	Kind   string `mapstructure:"Kind"`
	Method string `mapstructure:"Method"`
	Path   string `mapstructure:"Path"`
	// Body 为 JSON 文本，加载时解析到 Payload，避免 viper 把嵌套表的键转成小写。
	Body        string `mapstructure:"Body"`
	Payload     any    `mapstructure:"-"`
	StatusCode  int    `mapstructure:"StatusCode"`
	Text        string `mapstructure:"Text"`
	ContentType string `mapstructure:"ContentType"`
}

// StaticConfig 对应 [[Static]]，FSPath 在加载时转换为绝对路径。
type StaticConfig struct {
	URLPath string `mapstructure:"URLPath"`
	FSPath  string `mapstructure:"FSPath"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig   `mapstructure:",squash"`
	Routes []RouteConfig  `mapstructure:"Route"`
	Static []StaticConfig `mapstructure:"Static"`
}

// RouteKinds 返回每条路由的 kind 摘要，例如 GET /health:json，供启动日志使用。
func RouteKinds(routes []RouteConfig) []string {
	if len(routes) == 0 {
		return nil
	}
	result := make([]string, len(routes))
	for i, route := range routes {
		result[i] = fmt.Sprintf("%s %s:%s", strings.ToUpper(route.Method), route.Path, route.Kind)
	}
	return result
}
