package intersection

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tsinghua-fib-lab/crossroad-sim/entity"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity/vehicle"
)

// IDispatchObserver 车辆通过路口的观察者（如台账）
type IDispatchObserver interface {
	OnDeparted(v *vehicle.Vehicle)              // 车辆开始通过（离开时间已设置）
	OnCompleted(v *vehicle.Vehicle, cost int64) // 车辆完成通过，代价已计入累加器
}

// Crossing 车辆通过路口的操作
// 功能：记录离开时间，模拟固定时长的通过过程，随后把等待代价计入共享累加器
// 说明：Crossing本身不获取Gate，调用方需在持有Gate期间调用Cross/Go
type Crossing struct {
	clock    entity.IClock
	sink     entity.IEventSink
	departed entity.ICounter         // 已通过车辆数
	cost     entity.ICostAccumulator // 代价累加器
	transit  time.Duration           // 单车通过耗时
	observer IDispatchObserver       // 可选

	inflight  sync.WaitGroup // 通过Go发出、尚未完成的通过操作
	active    atomic.Int32   // 正在通过路口的车辆数
	maxActive atomic.Int32   // 观测到的最大同时通过车辆数
}

// NewCrossing 创建通过操作
// 参数：clock-仿真时钟，sink-事件接收者，departed-已通过车辆计数器，cost-代价累加器，transit-通过耗时
// 返回：新创建的Crossing实例
func NewCrossing(
	clock entity.IClock,
	sink entity.IEventSink,
	departed entity.ICounter,
	cost entity.ICostAccumulator,
	transit time.Duration,
) *Crossing {
	return &Crossing{
		clock:    clock,
		sink:     sink,
		departed: departed,
		cost:     cost,
		transit:  transit,
	}
}

// SetSink 设置事件接收者，需在运行开始前调用
func (c *Crossing) SetSink(sink entity.IEventSink) {
	c.sink = sink
}

// SetObserver 设置观察者，需在运行开始前调用
func (c *Crossing) SetObserver(o IDispatchObserver) {
	c.observer = o
}

// Cross 同步地让一辆车通过路口
// 功能：设置离开时间，等待通过耗时，计入代价
// 参数：v-等待通过的车辆
// 说明：返回时车辆已完成通过
func (c *Crossing) Cross(v *vehicle.Vehicle) {
	c.depart(v)
	c.pass(v)
}

// Go 异步地让一辆车通过路口
// 功能：在调用协程中设置离开时间（保证同方向离开顺序与发出顺序一致），
// 然后在新协程中完成通过过程
// 参数：v-等待通过的车辆
// 返回：通过完成时关闭的channel
func (c *Crossing) Go(v *vehicle.Vehicle) <-chan struct{} {
	c.depart(v)
	done := make(chan struct{})
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer close(done)
		c.pass(v)
	}()
	return done
}

// Wait 等待所有通过Go发出的通过操作完成
func (c *Crossing) Wait() {
	c.inflight.Wait()
}

// Active 正在通过路口的车辆数
func (c *Crossing) Active() int32 {
	return c.active.Load()
}

// MaxActive 观测到的最大同时通过车辆数
func (c *Crossing) MaxActive() int32 {
	return c.maxActive.Load()
}

// depart 设置离开时间并发出departure事件
func (c *Crossing) depart(v *vehicle.Vehicle) {
	if err := v.SetDeparture(c.clock.Now()); err != nil {
		log.Panicf("panic: depart: %v", err)
	}
	c.emit(entity.EventDeparture, v)
	if c.observer != nil {
		c.observer.OnDeparted(v)
	}
}

// pass 模拟通过过程并结算代价
// 算法说明：
// 1. 正在通过车辆数+1，更新最大值
// 2. 等待固定的通过耗时
// 3. 发出completed事件，已通过车辆数+1
// 4. 计算代价（时间戳未设置属于致命错误）并原子累加
func (c *Crossing) pass(v *vehicle.Vehicle) {
	a := c.active.Add(1)
	for {
		m := c.maxActive.Load()
		if a <= m || c.maxActive.CompareAndSwap(m, a) {
			break
		}
	}

	c.clock.Sleep(c.transit)

	c.emit(entity.EventCompleted, v)
	c.active.Add(-1)
	c.departed.Inc()

	cost, err := v.Cost()
	if err != nil {
		log.Panicf("panic: updateCost: %v", err)
	}
	c.cost.Add(cost)
	if c.observer != nil {
		c.observer.OnCompleted(v, cost)
	}
}

func (c *Crossing) emit(kind entity.EventKind, v *vehicle.Vehicle) {
	if c.sink == nil {
		return
	}
	c.sink.Emit(entity.Event{
		Kind:      kind,
		VehicleID: v.ID(),
		Direction: v.Direction(),
		ElapsedMs: c.clock.Now(),
	})
}
