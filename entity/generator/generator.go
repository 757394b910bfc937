package generator

import (
	"time"

	"github.com/tsinghua-fib-lab/crossroad-sim/entity"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity/vehicle"
	"github.com/tsinghua-fib-lab/crossroad-sim/utils/container"
)

// Queue 单方向等待队列
type Queue = container.CursorQueue[*vehicle.Vehicle]

// IRandom 随机到达间隔来源（randengine.Engine实现）
type IRandom interface {
	DelaySafe(bound time.Duration) time.Duration
}

// Options 车辆生成器选项
type Options struct {
	Bound   time.Duration   // 到达间隔上限（不包含）
	Doubled bool            // 每次到达生成两辆车
	Arrived entity.ICounter // 已到达车辆计数器，可选
}

// Generator 单方向车辆生成器
// 功能：按随机间隔生成车辆并追加到该方向的等待队列
// 说明：队列满后丢弃后续车辆，不视为错误
type Generator struct {
	dir   entity.Direction
	queue *Queue
	clock entity.IClock
	ids   entity.ICounter // 全局车辆编号计数器
	rng   IRandom
	sink  entity.IEventSink
	opts  Options

	dropped int // 因队列满而丢弃的车辆数，仅由本方向任务访问
}

// New 创建车辆生成器
// 参数：dir-方向，queue-该方向的等待队列，clock-仿真时钟，ids-全局编号计数器，
// rng-随机数来源，sink-事件接收者，opts-选项
// 返回：新创建的生成器
func New(
	dir entity.Direction,
	queue *Queue,
	clock entity.IClock,
	ids entity.ICounter,
	rng IRandom,
	sink entity.IEventSink,
	opts Options,
) *Generator {
	if !dir.Valid() {
		log.Panicf("panic: produceCars: invalid direction %d", int32(dir))
	}
	return &Generator{
		dir:   dir,
		queue: queue,
		clock: clock,
		ids:   ids,
		rng:   rng,
		sink:  sink,
		opts:  opts,
	}
}

func (g *Generator) Direction() entity.Direction {
	return g.dir
}

// Dropped 因队列满而丢弃的车辆数
func (g *Generator) Dropped() int {
	return g.dropped
}

// Wait 等待下一次到达
// 功能：睡眠[0, Bound)范围内均匀随机的毫秒数
func (g *Generator) Wait() {
	g.clock.Sleep(g.rng.DelaySafe(g.opts.Bound))
}

// Produce 生成一次到达
// 功能：生成一辆（Doubled时为两辆）车辆并追加到队列，为每辆车发出arrival事件
// 返回：本次实际加入队列的车辆
// 算法说明：
// 1. 队列已满则丢弃，丢弃的车辆不占用编号
// 2. 编号从全局计数器获取，到达时间为当前时钟
func (g *Generator) Produce() []*vehicle.Vehicle {
	n := 1
	if g.opts.Doubled {
		n = 2
	}
	produced := make([]*vehicle.Vehicle, 0, n)
	for range n {
		if g.queue.Full() {
			g.dropped++
			log.Debugf("%s queue full, drop arrival", g.dir)
			continue
		}
		v := vehicle.New(g.ids.Inc(), g.dir, g.clock.Now())
		if err := g.queue.Append(v); err != nil {
			g.dropped++
			log.Debugf("drop car %d: %v", v.ID(), err)
			continue
		}
		if g.opts.Arrived != nil {
			g.opts.Arrived.Inc()
		}
		if g.sink != nil {
			g.sink.Emit(entity.Event{
				Kind:      entity.EventArrival,
				VehicleID: v.ID(),
				Direction: g.dir,
				ElapsedMs: v.ArrivalTime(),
			})
		}
		produced = append(produced, v)
	}
	return produced
}

// Step 一次生成迭代：Wait后Produce
func (g *Generator) Step() []*vehicle.Vehicle {
	g.Wait()
	return g.Produce()
}

// Run 单方向任务主循环
// 功能：持续生成车辆，每次生成后调用dispatch（可为nil）处理该方向的等待车辆，直到运行时间达到stopSeconds
// 说明：终止条件在每次迭代结束时检查，因此越过边界后至多再生成一次到达
func (g *Generator) Run(stopSeconds int64, dispatch func()) {
	for {
		g.Step()
		if dispatch != nil {
			dispatch()
		}
		if g.clock.Seconds() >= stopSeconds {
			break
		}
	}
}
