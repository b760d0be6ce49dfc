package handle

import (
	"sync"

	"github.com/any-hub/hubserve/internal/server"
)

// State 保存单个逻辑服务器实例的进程内状态。
// 不变式：running == true ⇔ engine != nil ⇔ port 已设置。
// routes/mounts 只追加，stop 不会清空。
type State struct {
	mu      sync.RWMutex
	running bool
	port    int
	engine  server.Engine
	routes  []RouteDefinition
	mounts  []StaticMount
}

// Snapshot 是 State 的只读副本，切片均为拷贝，调用方可以安全持有。
type Snapshot struct {
	Running bool
	Port    int
	Routes  []RouteDefinition
	Mounts  []StaticMount
}

// NewState 创建一个未运行、队列为空的状态。
func NewState() *State {
	return &State{}
}

func (s *State) appendRoute(route RouteDefinition) (server.Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, route)
	return s.engine, s.running
}

func (s *State) appendMount(mount StaticMount) (server.Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounts = append(s.mounts, mount)
	return s.engine, s.running
}

// queues 返回当前队列的拷贝，用于 start 时重放。
func (s *State) queues() ([]RouteDefinition, []StaticMount) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]RouteDefinition(nil), s.routes...), append([]StaticMount(nil), s.mounts...)
}

func (s *State) markRunning(engine server.Engine, port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = engine
	s.port = port
	s.running = true
}

func (s *State) markStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = nil
	s.port = 0
	s.running = false
}

func (s *State) liveEngine() (server.Engine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine, s.running
}

// Running reports the lifecycle flag.
func (s *State) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Port returns the bound port, or false when nothing is bound.
func (s *State) Port() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0, false
	}
	return s.port, true
}

// Snapshot returns a defensive copy safe for concurrent reads.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Running: s.running,
		Port:    s.port,
		Routes:  append([]RouteDefinition(nil), s.routes...),
		Mounts:  append([]StaticMount(nil), s.mounts...),
	}
}
