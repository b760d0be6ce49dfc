package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	for i := range cfg.Routes {
		applyRouteDefaults(&cfg.Routes[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for i := range cfg.Routes {
		if err := decodeRouteBody(i, &cfg.Routes[i]); err != nil {
			return nil, err
		}
	}
	for i := range cfg.Static {
		abs, err := filepath.Abs(cfg.Static[i].FSPath)
		if err != nil {
			return nil, fmt.Errorf("%s: 无法解析目录: %w", staticField(i, "FSPath"), err)
		}
		cfg.Static[i].FSPath = abs
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 0)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("ReadTimeout", "30s")
	v.SetDefault("WriteTimeout", "30s")
	v.SetDefault("IdleTimeout", "60s")
	v.SetDefault("Diagnostics", true)
}

func applyGlobalDefaults(g *GlobalConfig) {
	if strings.TrimSpace(g.LogLevel) == "" {
		g.LogLevel = "info"
	}
	if g.ReadTimeout.DurationValue() == 0 {
		g.ReadTimeout = Duration(30 * time.Second)
	}
	if g.WriteTimeout.DurationValue() == 0 {
		g.WriteTimeout = Duration(30 * time.Second)
	}
	if g.IdleTimeout.DurationValue() == 0 {
		g.IdleTimeout = Duration(60 * time.Second)
	}
}

// applyRouteDefaults 只做大小写归一，方法名本身不在此校验。
func applyRouteDefaults(r *RouteConfig) {
	r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
	r.Method = strings.ToLower(strings.TrimSpace(r.Method))
	if r.Kind == "json" && r.StatusCode == 0 {
		r.StatusCode = 200
	}
	if r.Kind == "text" && strings.TrimSpace(r.ContentType) == "" {
		r.ContentType = "text/plain"
	}
}

func decodeRouteBody(idx int, r *RouteConfig) error {
	if r.Kind != "json" || strings.TrimSpace(r.Body) == "" {
		return nil
	}
	var payload any
	if err := json.Unmarshal([]byte(r.Body), &payload); err != nil {
		return newFieldError(routeField(idx, "Body"), fmt.Sprintf("不是合法的 JSON: %v", err))
	}
	r.Payload = payload
	return nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
