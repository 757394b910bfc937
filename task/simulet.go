package task

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity/generator"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity/vehicle"
	"github.com/tsinghua-fib-lab/crossroad-sim/utils/config"
)

// crosser 通过操作（intersection.Crossing实现）
type crosser interface {
	Cross(v *vehicle.Vehicle)
	Go(v *vehicle.Vehicle) <-chan struct{}
}

// RunSimple 运行简单轮询调度（每次占用路口只放行一辆车）
// 返回：本轮报告，未Reset时返回ErrNotReset
func (ctx *Context) RunSimple() (Report, error) {
	return ctx.run(PolicySimple, ctx.simpleDispatch)
}

// RunParallel 运行并行轮询调度（方向上有多辆车等待时批量交错放行）
// 参数：baseline-简单调度的报告，用于计算代价差
// 返回：本轮报告，未Reset时返回ErrNotReset
func (ctx *Context) RunParallel(baseline Report) (Report, error) {
	r, err := ctx.run(PolicyParallel, ctx.parallelDispatch)
	if err != nil {
		return r, err
	}
	r.HasBaseline = true
	r.Baseline = baseline.Cost
	r.Diff = baseline.Cost - r.Cost
	return r, nil
}

// run 运行一轮仿真
// 算法说明：
// 1. 捕获时钟epoch，为每个方向创建车辆生成器，事件带上本轮run字段
// 2. 四个方向任务各自一个goroutine并发执行，直到运行时间达到设定时长
// 3. 等待所有仍在通过路口的车辆完成，再读取累加器
// 4. 生成报告
func (ctx *Context) run(policy Policy, dispatch func(g *generator.Generator) func()) (Report, error) {
	if ctx.used {
		return Report{}, ErrNotReset
	}
	ctx.used = true
	runID := uuid.NewString()

	sink := ctx.sink
	if rs, ok := sink.(entity.IRunSink); ok {
		sink = rs.WithRun(runID)
	}
	ctx.crossing.SetSink(sink)

	ctx.clock.Init()
	for _, dir := range entity.Directions {
		ctx.generators[dir] = generator.New(
			dir, ctx.queues[dir], ctx.clock, &ctx.ids, ctx.rng, sink,
			generator.Options{
				Bound:   ctx.config.ArrivalBound,
				Doubled: policy == PolicyParallel && ctx.config.Doubled[dir],
				Arrived: &ctx.arrived,
			},
		)
	}
	log.WithField("run", runID).Infof("Running %s scheduler for %ds", policy, ctx.config.StopSeconds())

	var wg sync.WaitGroup
	for _, dir := range entity.Directions {
		g := ctx.generators[dir]
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Run(ctx.config.StopSeconds(), dispatch(g))
		}()
	}
	wg.Wait()
	ctx.crossing.Wait()

	return ctx.report(policy, runID), nil
}

// simpleDispatch 简单调度的单方向放行操作
// 功能：若该方向有车等待，则占用路口放行一辆
func (ctx *Context) simpleDispatch(g *generator.Generator) func() {
	dir := g.Direction()
	q := ctx.queues[dir]
	return func() {
		if q.Waiting() == 0 {
			return
		}
		ep := ctx.gate.Acquire(dir)
		if v, ok := q.Next(); ok {
			ctx.crossing.Cross(v)
		}
		ctx.gate.Release(ep)
	}
}

// parallelDispatch 并行调度的单方向放行操作
// 功能：与simpleDispatch相同，但占用路口时若有多辆车等待，则把全部等待车辆作为一批交错并发放行
// 说明：队列只由本方向任务生成与消费，因此检查等待数与占用路口之间等待数不会变化
func (ctx *Context) parallelDispatch(g *generator.Generator) func() {
	dir := g.Direction()
	q := ctx.queues[dir]
	return func() {
		if q.Waiting() == 0 {
			return
		}
		ep := ctx.gate.Acquire(dir)
		if q.Waiting() > 1 {
			vs := q.Drain()
			if ctx.burstObserver != nil {
				ctx.burstObserver.OnBurst(dir, ep, vs)
			}
			log.Debugf("%s burst: %v", dir, lo.Map(vs, func(v *vehicle.Vehicle, _ int) int64 {
				return v.ID()
			}))
			dispatchBurst(ctx.clock, ctx.crossing, ctx.config.Stagger, ctx.config.BurstAwait, vs)
		} else if v, ok := q.Next(); ok {
			ctx.crossing.Cross(v)
		}
		ctx.gate.Release(ep)
	}
}

// dispatchBurst 批量交错放行
// 功能：按FIFO顺序逐辆异步发出通过操作，相邻两次发出之间等待stagger
// 参数：clk-时钟，x-通过操作，stagger-发车间隔，await-释放路口前的等待策略，vs-本批车辆
// 说明：
// 1. AwaitLast：只等待最后发出的一辆完成，更早发出的车辆可能在路口释放后仍在通过
// 2. AwaitAll：等待本批全部车辆完成
func dispatchBurst(clk entity.IClock, x crosser, stagger time.Duration, await config.BurstAwait, vs []*vehicle.Vehicle) {
	if len(vs) == 0 {
		return
	}
	dones := make([]<-chan struct{}, 0, len(vs))
	for i, v := range vs {
		dones = append(dones, x.Go(v))
		if i < len(vs)-1 {
			clk.Sleep(stagger)
		}
	}
	switch await {
	case config.AwaitAll:
		for _, done := range dones {
			<-done
		}
	default:
		<-dones[len(dones)-1]
	}
}
