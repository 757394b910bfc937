package task_test

import (
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/crossroad-sim/clock"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity/intersection"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity/vehicle"
	"github.com/tsinghua-fib-lab/crossroad-sim/output"
	"github.com/tsinghua-fib-lab/crossroad-sim/task"
	"github.com/tsinghua-fib-lab/crossroad-sim/utils/config"
)

type burstLog struct {
	mtx    sync.Mutex
	bursts map[entity.Direction][][]int64
}

func (b *burstLog) OnBurst(dir entity.Direction, ep *intersection.Episode, vs []*vehicle.Vehicle) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if b.bursts == nil {
		b.bursts = make(map[entity.Direction][][]int64)
	}
	b.bursts[dir] = append(b.bursts[dir], lo.Map(vs, func(v *vehicle.Vehicle, _ int) int64 {
		return v.ID()
	}))
}

func (b *burstLog) count() int {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return lo.SumBy(lo.Values(b.bursts), func(bs [][]int64) int { return len(bs) })
}

// shortConfig 使用真实时钟时的缩短配置
func shortConfig() config.Config {
	c := config.Default()
	c.Control.StopSeconds = 1
	c.Control.ArrivalBoundMs = 80
	c.Control.TransitMs = 20
	c.Parallel.StaggerMs = 5
	c.Control.Seed = 3
	return c
}

func checkReport(t *testing.T, ctx *task.Context, ledger *output.Ledger, r task.Report) {
	t.Helper()
	require.NoError(t, ledger.Check(r.Cost))
	assert.Equal(t, ledger.Replay(), r.Cost)
	assert.Equal(t, int64(len(ledger.Records())), r.Departed)
	assert.Equal(t, int32(1), r.MaxHolders)
	assert.Equal(t, int32(0), ctx.Gate().Holders())
	for _, dir := range entity.Directions {
		assert.Equal(t, int64(ledger.PerDirection()[dir]), r.PerDirection[dir], dir.String())
	}
	assert.LessOrEqual(t, r.Departed, r.Arrived)
	assert.InDelta(t, r.SecondsWaited*r.SecondsWaited*1e6, float64(r.Cost), float64(r.Cost)*1e-9+1)
}

// directionEvents 某方向某类事件的时间（ms），按发出顺序
func directionEvents(rec *output.Recorder, kind entity.EventKind, dir entity.Direction) []int64 {
	es := lo.Filter(rec.Kind(kind), func(e entity.Event, _ int) bool {
		return e.Direction == dir
	})
	return lo.Map(es, func(e entity.Event, _ int) int64 { return e.ElapsedMs })
}

// checkSpread 四个方向任务并发运行：每个方向的到达与离开都分布在整个运行时段内
func checkSpread(t *testing.T, rec *output.Recorder, stopMs int64) {
	t.Helper()
	for _, dir := range entity.Directions {
		arrivals := directionEvents(rec, entity.EventArrival, dir)
		departures := directionEvents(rec, entity.EventDeparture, dir)
		require.NotEmpty(t, arrivals, dir.String())
		require.NotEmpty(t, departures, dir.String())
		assert.Less(t, lo.Min(arrivals), stopMs/4, dir.String())
		assert.Greater(t, lo.Max(arrivals), stopMs*3/4, dir.String())
		assert.Less(t, lo.Min(departures), stopMs/2, dir.String())
		assert.Greater(t, lo.Max(departures), stopMs/2, dir.String())
	}
}

func TestRunSimpleManualClock(t *testing.T) {
	ledger := output.NewLedger()
	bursts := &burstLog{}
	ctx, err := task.NewContext(config.Default(), nil,
		task.WithClock(clock.NewManual()),
		task.WithDispatchObserver(ledger),
		task.WithBurstObserver(bursts),
	)
	require.NoError(t, err)

	r, err := ctx.RunSimple()
	require.NoError(t, err)
	assert.Equal(t, task.PolicySimple, r.Policy)
	assert.NotEmpty(t, r.RunID)
	assert.Greater(t, r.Departed, int64(0))
	checkReport(t, ctx, ledger, r)

	// 简单调度同一时刻最多一辆车通过路口，且从不批量放行
	assert.Equal(t, int32(1), r.MaxActive)
	assert.Equal(t, r.Departed, r.Episodes)
	assert.Zero(t, bursts.count())
	assert.False(t, r.HasBaseline)
}

func TestRunParallelManualClock(t *testing.T) {
	ledger := output.NewLedger()
	bursts := &burstLog{}
	ctx, err := task.NewContext(config.Default(), nil,
		task.WithClock(clock.NewManual()),
		task.WithDispatchObserver(ledger),
		task.WithBurstObserver(bursts),
	)
	require.NoError(t, err)

	baseline, err := ctx.RunSimple()
	require.NoError(t, err)

	ctx.Reset()
	ledger.Reset()
	assert.Zero(t, ctx.Cost())
	assert.Zero(t, ctx.Departed())
	assert.Zero(t, ctx.Arrived())
	assert.Zero(t, ctx.LastID())

	r, err := ctx.RunParallel(baseline)
	require.NoError(t, err)
	checkReport(t, ctx, ledger, r)
	assert.True(t, r.HasBaseline)
	assert.Equal(t, baseline.Cost, r.Baseline)
	assert.Equal(t, baseline.Cost-r.Cost, r.Diff)

	// NORTH与EAST双倍到达，必然出现批量放行
	assert.Greater(t, bursts.count(), 0)
	for dir, bs := range bursts.bursts {
		departures := ledger.Departures(dir)
		for _, b := range bs {
			assert.Greater(t, len(b), 1)
			// 每批车辆在该方向的离开序列中连续出现且保持FIFO
			start := lo.IndexOf(departures, b[0])
			require.GreaterOrEqual(t, start, 0)
			require.LessOrEqual(t, start+len(b), len(departures))
			assert.Equal(t, b, departures[start:start+len(b)])
		}
	}
}

func TestRunRealClock(t *testing.T) {
	if testing.Short() {
		t.Skip("real clock run")
	}
	for _, await := range []config.BurstAwait{config.AwaitLast, config.AwaitAll} {
		t.Run(string(await), func(t *testing.T) {
			cfg := shortConfig()
			cfg.Parallel.BurstAwait = await
			ledger := output.NewLedger()
			rec := output.NewRecorder()
			ctx, err := task.NewContext(cfg, rec, task.WithDispatchObserver(ledger))
			require.NoError(t, err)

			a, err := ctx.RunSimple()
			require.NoError(t, err)
			checkReport(t, ctx, ledger, a)
			assert.Equal(t, int32(1), a.MaxActive)
			assert.Len(t, rec.Kind(entity.EventCompleted), int(a.Departed))
			assert.Len(t, rec.Kind(entity.EventArrival), int(a.Arrived))
			checkSpread(t, rec, cfg.Control.StopSeconds*1000)

			ctx.Reset()
			ledger.Reset()
			rec.Reset()
			b, err := ctx.RunParallel(a)
			require.NoError(t, err)
			checkReport(t, ctx, ledger, b)
			assert.Len(t, rec.Kind(entity.EventCompleted), int(b.Departed))
			assert.Len(t, rec.Kind(entity.EventDeparture), int(b.Departed))
			checkSpread(t, rec, cfg.Control.StopSeconds*1000)

			// 每个方向任务在时长结束后（至多再多一次迭代）退出
			assert.GreaterOrEqual(t, ctx.Clock().Seconds(), int64(1))
		})
	}
}

func TestRunBoundaryArrivals(t *testing.T) {
	c := config.Default()
	stopMs := c.Control.StopSeconds * 1000
	rec := output.NewRecorder()
	ctx, err := task.NewContext(c, rec, task.WithClock(clock.NewManual()))
	require.NoError(t, err)

	// 时长在睡眠中耗尽时，每个方向至多多生成一次到达（双倍方向为两辆），随后全部方向任务退出
	late := func() map[entity.Direction]int {
		es := lo.Filter(rec.Kind(entity.EventArrival), func(e entity.Event, _ int) bool {
			return e.ElapsedMs >= stopMs
		})
		return lo.CountValuesBy(es, func(e entity.Event) entity.Direction { return e.Direction })
	}

	a, err := ctx.RunSimple()
	require.NoError(t, err)
	for _, dir := range entity.Directions {
		assert.NotEmpty(t, directionEvents(rec, entity.EventArrival, dir), dir.String())
		assert.LessOrEqual(t, late()[dir], 1, dir.String())
	}

	ctx.Reset()
	rec.Reset()
	_, err = ctx.RunParallel(a)
	require.NoError(t, err)
	for _, dir := range entity.Directions {
		limit := 1
		if lo.Contains(c.Parallel.DoubledDirections, dir) {
			limit = 2
		}
		assert.NotEmpty(t, directionEvents(rec, entity.EventArrival, dir), dir.String())
		assert.LessOrEqual(t, late()[dir], limit, dir.String())
	}
	assert.Equal(t, int32(0), ctx.Gate().Holders())
}

func TestGateHolderInstrumentation(t *testing.T) {
	var mtx sync.Mutex
	holding := 0
	maxHolding := 0
	onAcquire := func(ep *intersection.Episode) {
		mtx.Lock()
		defer mtx.Unlock()
		holding++
		maxHolding = max(maxHolding, holding)
	}
	onRelease := func(ep *intersection.Episode) {
		mtx.Lock()
		defer mtx.Unlock()
		holding--
	}
	ctx, err := task.NewContext(config.Default(), nil,
		task.WithClock(clock.NewManual()),
		task.WithGateHooks(onAcquire, onRelease),
	)
	require.NoError(t, err)

	r, err := ctx.RunSimple()
	require.NoError(t, err)
	assert.Equal(t, 1, maxHolding)
	assert.Equal(t, 0, holding)
	assert.Equal(t, r.Episodes, r.Departed)
}

func TestRunRequiresReset(t *testing.T) {
	ctx, err := task.NewContext(config.Default(), nil, task.WithClock(clock.NewManual()))
	require.NoError(t, err)

	a, err := ctx.RunSimple()
	require.NoError(t, err)
	_, err = ctx.RunParallel(a)
	assert.ErrorIs(t, err, task.ErrNotReset)
	_, err = ctx.RunSimple()
	assert.ErrorIs(t, err, task.ErrNotReset)

	ctx.Reset()
	_, err = ctx.RunParallel(a)
	assert.NoError(t, err)
}

func TestNewContextInvalidConfig(t *testing.T) {
	c := config.Default()
	c.Control.StopSeconds = 0
	_, err := task.NewContext(c, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestCounterAndAccumulator(t *testing.T) {
	var c task.Counter
	var a task.Accumulator
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.Inc()
				a.Add(3)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(800), c.Load())
	assert.Equal(t, int64(2400), a.Total())
	assert.Equal(t, int64(2403), a.Add(3))

	c.Reset()
	a.Reset()
	assert.Zero(t, c.Load())
	assert.Zero(t, a.Total())
}
