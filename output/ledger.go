package output

import (
	"fmt"
	"sync"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity/vehicle"
)

// Record 一辆已通过车辆的台账记录
type Record struct {
	ID        int64
	Direction entity.Direction
	Arrival   int64 // 到达时间（ms）
	Departure int64 // 离开时间（ms）
	Cost      int64 // 计入累加器的代价
}

// Ledger 通过台账
// 功能：记录每辆车开始通过的顺序与完成通过时的代价，用于事后重放校验
// 说明：实现intersection.IDispatchObserver
type Ledger struct {
	mtx        sync.Mutex
	departures map[entity.Direction][]int64 // 各方向开始通过的车辆编号（按开始通过顺序）
	records    []Record                     // 完成通过的记录（按完成顺序）
}

func NewLedger() *Ledger {
	l := &Ledger{}
	l.Reset()
	return l
}

// Reset 清空台账，用于每轮仿真开始前
func (l *Ledger) Reset() {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.departures = make(map[entity.Direction][]int64)
	l.records = make([]Record, 0)
}

func (l *Ledger) OnDeparted(v *vehicle.Vehicle) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.departures[v.Direction()] = append(l.departures[v.Direction()], v.ID())
}

func (l *Ledger) OnCompleted(v *vehicle.Vehicle, cost int64) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.records = append(l.records, Record{
		ID:        v.ID(),
		Direction: v.Direction(),
		Arrival:   v.ArrivalTime(),
		Departure: v.DepartureTime(),
		Cost:      cost,
	})
}

// Records 全部完成记录（副本）
func (l *Ledger) Records() []Record {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return append([]Record(nil), l.records...)
}

// Departures 指定方向按开始通过顺序排列的车辆编号
func (l *Ledger) Departures(dir entity.Direction) []int64 {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return append([]int64(nil), l.departures[dir]...)
}

// Replay 根据时间戳重新计算总代价
// 说明：不使用记录中的Cost，而是由到达/离开时间重算，用于核对累加器
func (l *Ledger) Replay() int64 {
	return lo.SumBy(l.Records(), func(r Record) int64 {
		waited := r.Departure - r.Arrival
		return waited * waited
	})
}

// PerDirection 各方向完成通过的车辆数
func (l *Ledger) PerDirection() map[entity.Direction]int {
	return lo.CountValuesBy(l.Records(), func(r Record) entity.Direction {
		return r.Direction
	})
}

// Pending 已开始通过但尚未完成的车辆数
func (l *Ledger) Pending() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	started := lo.SumBy(lo.Values(l.departures), func(ids []int64) int {
		return len(ids)
	})
	return started - len(l.records)
}

// Check 校验台账
// 功能：校验每条记录离开不早于到达、代价等于等待时长平方、各方向按编号顺序（即到达顺序）开始通过，
// 以及重放总代价与给定累加器总值一致
// 参数：total-累加器的最终值
// 返回：第一处不一致
func (l *Ledger) Check(total int64) error {
	for _, r := range l.Records() {
		if r.Departure < r.Arrival {
			return fmt.Errorf("car %d departed at %d before arrival at %d", r.ID, r.Departure, r.Arrival)
		}
		waited := r.Departure - r.Arrival
		if r.Cost != waited*waited {
			return fmt.Errorf("car %d cost %d != waited %d squared", r.ID, r.Cost, waited)
		}
	}
	for _, dir := range entity.Directions {
		ids := l.Departures(dir)
		for i := 1; i < len(ids); i++ {
			if ids[i] <= ids[i-1] {
				return fmt.Errorf("%s departed out of order: car %d after car %d", dir, ids[i], ids[i-1])
			}
		}
	}
	if pending := l.Pending(); pending != 0 {
		return fmt.Errorf("%d cars still crossing", pending)
	}
	if replay := l.Replay(); replay != total {
		return fmt.Errorf("replayed cost %d != accumulated cost %d", replay, total)
	}
	return nil
}
