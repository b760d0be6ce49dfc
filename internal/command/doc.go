// Package command 把 handle 的公开操作包装成可跨进程调用的命令表。
//
// 每个操作都有一个静态 Descriptor（名称、说明、参数列表），供外部调用方或 agent 发现；
// 参数以 map[string]any 传入，经 mapstructure 解码为强类型请求、validator 校验后
// 才交给 handle.Controller。返回值与错误均可直接序列化为 JSON。
package command
