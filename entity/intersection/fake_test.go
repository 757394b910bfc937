package intersection_test

import (
	"sync"
	"sync/atomic"

	"github.com/tsinghua-fib-lab/crossroad-sim/entity"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity/vehicle"
)

type counter struct{ v atomic.Int64 }

func (c *counter) Inc() int64  { return c.v.Add(1) }
func (c *counter) Load() int64 { return c.v.Load() }

type accumulator struct{ v atomic.Int64 }

func (a *accumulator) Add(cost int64) int64 { return a.v.Add(cost) }
func (a *accumulator) Total() int64         { return a.v.Load() }

type sink struct {
	mtx    sync.Mutex
	events []entity.Event
}

func (s *sink) Emit(e entity.Event) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.events = append(s.events, e)
}

func (s *sink) Events() []entity.Event {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]entity.Event(nil), s.events...)
}

type observer struct {
	mtx       sync.Mutex
	departed  []int64
	completed map[int64]int64
}

func (o *observer) OnDeparted(v *vehicle.Vehicle) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	o.departed = append(o.departed, v.ID())
}

func (o *observer) OnCompleted(v *vehicle.Vehicle, cost int64) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	if o.completed == nil {
		o.completed = make(map[int64]int64)
	}
	o.completed[v.ID()] = cost
}
