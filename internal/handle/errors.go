package handle

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning 表示 start 时服务器已在运行，状态保持不变。
var ErrAlreadyRunning = errors.New("server already running")

// BindError 表示端口不可用或无权限绑定，start 不保留任何中间状态。
type BindError struct {
	Port int
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind port %d: %v", e.Port, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// StopError 表示引擎未能干净释放监听；此时服务器仍视为运行中，可以重试 stop。
type StopError struct {
	Err error
}

func (e *StopError) Error() string {
	return fmt.Sprintf("stop server: %v", e.Err)
}

func (e *StopError) Unwrap() error {
	return e.Err
}
