package intersection

import (
	"sync"
	"sync/atomic"

	"github.com/tsinghua-fib-lab/crossroad-sim/entity"
)

// Episode 一次占用路口的通行过程
// 功能：记录从获得路口到释放路口之间的信息
// 说明：可能是单车通过，也可能是一批交错并发通过的车辆
type Episode struct {
	ID         int64            // 序号，从1开始
	Direction  entity.Direction // 占用路口的方向
	AcquiredAt int64            // 获得路口的时间（ms）
}

// Gate 路口互斥资源
// 功能：同一时刻只允许一个通行过程占用路口，其余方向阻塞等待
// 说明：
// 1. 不保证各方向获得路口的先后顺序，竞争中的方向可能饿死
// 2. 提供占用者计数等统计，以及获得/释放时的可选钩子，用于测试观测
type Gate struct {
	mtx   sync.Mutex
	clock entity.IClock

	// holders与maxHolders只在持有mtx时更新，因此maxHolders按构造恒为1，只是Gate自身的记账；
	// 调度是否遵守互斥需由OnAcquire/OnRelease钩子在外部独立计数核对
	holders    atomic.Int32 // 当前占用者数
	maxHolders atomic.Int32 // 观测到的最大占用者数
	episodes   atomic.Int64 // 已开始的通行过程数

	// 钩子，在运行开始前设置
	OnAcquire func(ep *Episode) // 获得路口之后调用（持有锁）
	OnRelease func(ep *Episode) // 释放路口之前调用（持有锁）
}

// NewGate 创建路口互斥资源
// 参数：clock-仿真时钟
// 返回：新创建的Gate实例
func NewGate(clock entity.IClock) *Gate {
	return &Gate{clock: clock}
}

// Acquire 获得路口
// 功能：阻塞直到路口空闲，然后开始一个新的通行过程
// 参数：dir-占用路口的方向
// 返回：本次通行过程，释放时需传回Release
func (g *Gate) Acquire(dir entity.Direction) *Episode {
	g.mtx.Lock()
	h := g.holders.Add(1)
	for {
		m := g.maxHolders.Load()
		if h <= m || g.maxHolders.CompareAndSwap(m, h) {
			break
		}
	}
	ep := &Episode{
		ID:         g.episodes.Add(1),
		Direction:  dir,
		AcquiredAt: g.clock.Now(),
	}
	if g.OnAcquire != nil {
		g.OnAcquire(ep)
	}
	return ep
}

// Release 释放路口
func (g *Gate) Release(ep *Episode) {
	if g.OnRelease != nil {
		g.OnRelease(ep)
	}
	g.holders.Add(-1)
	g.mtx.Unlock()
}

// Holders 当前占用者数
func (g *Gate) Holders() int32 {
	return g.holders.Load()
}

// MaxHolders 观测到的最大占用者数（在锁内记账，运行过后恒为1）
func (g *Gate) MaxHolders() int32 {
	return g.maxHolders.Load()
}

// Episodes 已开始的通行过程数
func (g *Gate) Episodes() int64 {
	return g.episodes.Load()
}
