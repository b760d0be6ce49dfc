package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RouteFields 提供路由注册日志所需的 method/path/kind 字段，live 表示是否已直接应用到运行中的引擎。
func RouteFields(method, path, kind string, live bool) logrus.Fields {
	return logrus.Fields{
		"action": "route_add",
		"method": method,
		"path":   path,
		"kind":   kind,
		"live":   live,
	}
}
