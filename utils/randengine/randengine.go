// 随机数引擎，包装了golang.org/x/exp/rand，供多个方向任务并发使用
package randengine

import (
	"flag"
	"log"
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 功能：提供线程安全的随机数生成，用于车辆到达间隔等随机量
// 说明：底层rand.Rand不是线程安全的，所有*Safe方法在互斥锁保护下调用
type Engine struct {
	*rand.Rand            // 底层随机数生成器
	mtx        sync.Mutex // 互斥锁，用于线程安全操作
}

// New 创建随机数引擎
// 功能：初始化一个新的随机数引擎实例
// 参数：seed-随机数种子，为0时使用当前时间作为种子
// 返回：随机数引擎指针
// 说明：种子偏移量允许在不修改配置的情况下调整随机数序列
func New(seed uint64) *Engine {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// IntnSafe 随机生成整数（线程安全）
// 参数：n-范围上限（不包含），必须为正数
// 返回：[0, n)范围内的随机整数
func (e *Engine) IntnSafe(n int) int {
	if n <= 0 {
		log.Panicf("randengine: IntnSafe: invalid bound %d", n)
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Intn(n)
}

// DelaySafe 随机生成时长（线程安全）
// 功能：在[0, bound)毫秒范围内均匀地生成一个随机时长
// 参数：bound-上限（不包含）
// 返回：毫秒粒度的随机时长
func (e *Engine) DelaySafe(bound time.Duration) time.Duration {
	ms := bound.Milliseconds()
	if ms <= 0 {
		return 0
	}
	return time.Duration(e.IntnSafe(int(ms))) * time.Millisecond
}
