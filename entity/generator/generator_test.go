package generator_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/crossroad-sim/clock"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity/generator"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity/vehicle"
	"github.com/tsinghua-fib-lab/crossroad-sim/utils/container"
	"github.com/tsinghua-fib-lab/crossroad-sim/utils/randengine"
)

type counter struct{ v atomic.Int64 }

func (c *counter) Inc() int64  { return c.v.Add(1) }
func (c *counter) Load() int64 { return c.v.Load() }

// fixedDelay 总是返回固定间隔
type fixedDelay time.Duration

func (f fixedDelay) DelaySafe(time.Duration) time.Duration { return time.Duration(f) }

type sink struct {
	mtx    sync.Mutex
	events []entity.Event
}

func (s *sink) Emit(e entity.Event) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.events = append(s.events, e)
}

func TestProduce(t *testing.T) {
	c := clock.NewManual()
	q := container.NewCursorQueue[*vehicle.Vehicle]("NORTH", 100)
	ids := &counter{}
	arrived := &counter{}
	s := &sink{}
	g := generator.New(entity.North, q, c, ids, fixedDelay(250*time.Millisecond), s, generator.Options{
		Bound:   2000 * time.Millisecond,
		Arrived: arrived,
	})

	vs := g.Step()
	require.Len(t, vs, 1)
	assert.Equal(t, int64(1), vs[0].ID())
	assert.Equal(t, int64(250), vs[0].ArrivalTime())
	assert.Equal(t, entity.North, vs[0].Direction())
	assert.False(t, vs[0].Departed())
	assert.Equal(t, 1, q.Waiting())
	assert.Equal(t, int64(1), arrived.Load())

	require.Len(t, s.events, 1)
	assert.Equal(t, entity.EventArrival, s.events[0].Kind)
	assert.Equal(t, int64(1), s.events[0].VehicleID)
	assert.Equal(t, int64(250), s.events[0].ElapsedMs)
}

func TestProduceDoubled(t *testing.T) {
	c := clock.NewManual()
	q := container.NewCursorQueue[*vehicle.Vehicle]("EAST", 100)
	ids := &counter{}
	// 其他方向共享同一个编号计数器
	ids.Inc()
	g := generator.New(entity.East, q, c, ids, fixedDelay(0), nil, generator.Options{Doubled: true})

	vs := g.Produce()
	require.Len(t, vs, 2)
	assert.Equal(t, int64(2), vs[0].ID())
	assert.Equal(t, int64(3), vs[1].ID())
	assert.Equal(t, vs, q.Drain())
}

func TestProduceQueueFull(t *testing.T) {
	c := clock.NewManual()
	q := container.NewCursorQueue[*vehicle.Vehicle]("EAST", 3)
	ids := &counter{}
	g := generator.New(entity.East, q, c, ids, fixedDelay(0), nil, generator.Options{Doubled: true})

	assert.Len(t, g.Produce(), 2)
	assert.Len(t, g.Produce(), 1)
	assert.Empty(t, g.Produce())
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 3, g.Dropped())
	// 丢弃的车辆不占用编号
	assert.Equal(t, int64(3), ids.Load())
}

func TestRunStopsAfterBoundary(t *testing.T) {
	c := clock.NewManual()
	q := container.NewCursorQueue[*vehicle.Vehicle]("SOUTH", 0)
	g := generator.New(entity.South, q, c, &counter{}, randengine.New(11), nil, generator.Options{
		Bound: 2000 * time.Millisecond,
	})

	dispatched := 0
	g.Run(60, func() { dispatched++ })

	assert.Equal(t, q.Len(), dispatched)
	assert.GreaterOrEqual(t, c.Now(), int64(60000))
	late := 0
	for _, v := range q.Values() {
		if v.ArrivalTime() >= 60000 {
			late++
		}
	}
	// 睡眠中越过边界时最多多生成一次到达
	assert.Equal(t, 1, late)
	assert.Less(t, c.Now(), int64(62000))
}

func TestInvalidDirection(t *testing.T) {
	q := container.NewCursorQueue[*vehicle.Vehicle]("X", 1)
	assert.Panics(t, func() {
		generator.New(entity.Direction(5), q, clock.NewManual(), &counter{}, fixedDelay(0), nil, generator.Options{})
	})
}
