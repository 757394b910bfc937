package task

import (
	"sync"
	"sync/atomic"
)

// Counter 共享计数器
// 功能：车辆编号、已到达/已通过车辆数等全局计数
// 说明：只能通过Inc原子修改，每轮仿真开始前由Reset显式清零
type Counter struct {
	v atomic.Int64
}

// Inc 原子自增并返回新值
func (c *Counter) Inc() int64 {
	return c.v.Add(1)
}

func (c *Counter) Load() int64 {
	return c.v.Load()
}

func (c *Counter) Reset() {
	c.v.Store(0)
}

// Accumulator 代价累加器
// 功能：保存所有车辆等待时长平方之和
// 说明：使用独立的互斥锁保护，Add为唯一的修改入口
type Accumulator struct {
	mtx   sync.Mutex
	total int64
}

// Add 累加代价并返回新的总和
func (a *Accumulator) Add(cost int64) int64 {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.total += cost
	return a.total
}

// Total 当前总代价
func (a *Accumulator) Total() int64 {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.total
}

// Reset 清零，用于每轮仿真开始前
func (a *Accumulator) Reset() {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.total = 0
}
