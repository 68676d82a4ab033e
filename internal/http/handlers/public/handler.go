package public

import "github.com/unitshop/internal/provider"

// Handler 机器人前端调用的用户侧接口
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
