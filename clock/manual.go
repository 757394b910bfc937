package clock

import (
	"sync"
	"time"
)

// Manual 手动推进的时钟
// 功能：测试用时钟，时间只在Set/Advance/Sleep时前进
// 说明：Sleep不阻塞，而是把时钟推进d，使依赖时钟的组件可以被确定性地测试
type Manual struct {
	mtx sync.Mutex
	ms  int64
}

// NewManual 创建从0ms开始的手动时钟
func NewManual() *Manual {
	return &Manual{}
}

func (c *Manual) Now() int64 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.ms
}

func (c *Manual) Seconds() int64 {
	return c.Now() / 1000
}

// Sleep 将时钟推进d（不阻塞）
func (c *Manual) Sleep(d time.Duration) {
	c.Advance(d.Milliseconds())
}

// Init 将时钟归零
func (c *Manual) Init() {
	c.Set(0)
}

// Set 将时钟设置为ms毫秒
func (c *Manual) Set(ms int64) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.ms = ms
}

// Advance 将时钟推进ms毫秒，返回推进后的时间
func (c *Manual) Advance(ms int64) int64 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.ms += ms
	return c.ms
}
