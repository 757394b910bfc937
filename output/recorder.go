package output

import (
	"sync"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity"
)

// Recorder 内存事件记录
// 功能：按接收顺序保存全部事件，供测试与钩子查询
type Recorder struct {
	mtx    sync.Mutex
	events []entity.Event
}

func NewRecorder() *Recorder {
	return &Recorder{events: make([]entity.Event, 0)}
}

func (r *Recorder) Emit(e entity.Event) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.events = append(r.events, e)
}

// Events 全部事件（副本）
func (r *Recorder) Events() []entity.Event {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]entity.Event(nil), r.events...)
}

// Kind 指定类型的事件
func (r *Recorder) Kind(kind entity.EventKind) []entity.Event {
	return lo.Filter(r.Events(), func(e entity.Event, _ int) bool {
		return e.Kind == kind
	})
}

// Find 查找指定车辆的指定类型事件
func (r *Recorder) Find(id int64, kind entity.EventKind) (entity.Event, bool) {
	return lo.Find(r.Events(), func(e entity.Event) bool {
		return e.VehicleID == id && e.Kind == kind
	})
}

// Reset 清空记录
func (r *Recorder) Reset() {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.events = make([]entity.Event, 0)
}
