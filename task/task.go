package task

import (
	"errors"
	"fmt"

	"github.com/tsinghua-fib-lab/crossroad-sim/clock"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity/generator"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity/intersection"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity/vehicle"
	"github.com/tsinghua-fib-lab/crossroad-sim/utils/config"
	"github.com/tsinghua-fib-lab/crossroad-sim/utils/container"
	"github.com/tsinghua-fib-lab/crossroad-sim/utils/randengine"
)

var (
	ErrNotReset = errors.New("simulation context must be Reset between runs")
)

// IBurstObserver 批量放行观察者
// 说明：在一次批量放行开始前调用，vehicles为本次按发出顺序排列的全部车辆
type IBurstObserver interface {
	OnBurst(dir entity.Direction, ep *intersection.Episode, vehicles []*vehicle.Vehicle)
}

// Option 仿真上下文选项
type Option func(ctx *Context)

// WithClock 使用指定时钟（默认clock.New()）
func WithClock(c entity.IClock) Option {
	return func(ctx *Context) {
		ctx.clock = c
	}
}

// WithDispatchObserver 设置车辆通过观察者（如output.Ledger）
func WithDispatchObserver(o intersection.IDispatchObserver) Option {
	return func(ctx *Context) {
		ctx.observer = o
	}
}

// WithBurstObserver 设置批量放行观察者
func WithBurstObserver(o IBurstObserver) Option {
	return func(ctx *Context) {
		ctx.burstObserver = o
	}
}

// WithGateHooks 设置路口获得/释放钩子，每次Reset后重新挂到新的Gate上
func WithGateHooks(onAcquire, onRelease func(ep *intersection.Episode)) Option {
	return func(ctx *Context) {
		ctx.onAcquire = onAcquire
		ctx.onRelease = onRelease
	}
}

// Context 仿真任务上下文
// 功能：包含一轮仿真的所有共享状态，替代全局变量
// 说明：共享计数器、代价累加器、各方向队列、路口在Reset时重建；
// 基准代价不保存在Context中，由调用方通过Report传入下一轮
type Context struct {
	config *config.RuntimeConfig
	clock  entity.IClock
	sink   entity.IEventSink
	rng    *randengine.Engine

	ids      Counter     // 车辆编号
	arrived  Counter     // 已到达车辆数
	departed Counter     // 已通过车辆数
	cost     Accumulator // 代价累加器

	gate       *intersection.Gate
	crossing   *intersection.Crossing
	queues     map[entity.Direction]*generator.Queue
	generators map[entity.Direction]*generator.Generator

	observer      intersection.IDispatchObserver
	burstObserver IBurstObserver
	onAcquire     func(ep *intersection.Episode)
	onRelease     func(ep *intersection.Episode)

	used bool // 自上次Reset以来是否已运行过
}

// NewContext 创建仿真任务上下文
// 参数：c-配置，sink-事件接收者（可为nil），opts-选项
// 返回：初始化完成的Context，配置非法时返回错误
func NewContext(c config.Config, sink entity.IEventSink, opts ...Option) (*Context, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}
	ctx := &Context{
		config: config.NewRuntimeConfig(c),
		sink:   sink,
	}
	for _, opt := range opts {
		opt(ctx)
	}
	if ctx.clock == nil {
		ctx.clock = clock.New()
	}
	ctx.rng = randengine.New(ctx.config.Seed)
	ctx.Reset()
	return ctx, nil
}

// Reset 重置共享状态
// 功能：清零代价累加器、车辆编号与到达/通过计数，重建各方向队列、路口与通过操作
// 说明：两轮仿真之间必须显式调用；时钟epoch在每轮开始时重新捕获
func (ctx *Context) Reset() {
	ctx.ids.Reset()
	ctx.arrived.Reset()
	ctx.departed.Reset()
	ctx.cost.Reset()

	ctx.gate = intersection.NewGate(ctx.clock)
	ctx.gate.OnAcquire = ctx.onAcquire
	ctx.gate.OnRelease = ctx.onRelease

	ctx.crossing = intersection.NewCrossing(ctx.clock, ctx.sink, &ctx.departed, &ctx.cost, ctx.config.Transit)
	if ctx.observer != nil {
		ctx.crossing.SetObserver(ctx.observer)
	}

	ctx.queues = make(map[entity.Direction]*generator.Queue, len(entity.Directions))
	for _, dir := range entity.Directions {
		ctx.queues[dir] = container.NewCursorQueue[*vehicle.Vehicle](dir.String(), ctx.config.Capacity)
	}
	ctx.generators = make(map[entity.Direction]*generator.Generator, len(entity.Directions))
	ctx.used = false
}

func (ctx *Context) Clock() entity.IClock {
	return ctx.clock
}

func (ctx *Context) Gate() *intersection.Gate {
	return ctx.gate
}

// Queue 指定方向的等待队列
func (ctx *Context) Queue(dir entity.Direction) *generator.Queue {
	return ctx.queues[dir]
}

// Cost 当前累计代价
func (ctx *Context) Cost() int64 {
	return ctx.cost.Total()
}

// Arrived 当前已到达车辆数
func (ctx *Context) Arrived() int64 {
	return ctx.arrived.Load()
}

// Departed 当前已完成通过车辆数
func (ctx *Context) Departed() int64 {
	return ctx.departed.Load()
}

// LastID 最近分配的车辆编号
func (ctx *Context) LastID() int64 {
	return ctx.ids.Load()
}
