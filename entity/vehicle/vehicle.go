package vehicle

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/tsinghua-fib-lab/crossroad-sim/entity"
)

// Unset 未设置时间戳的哨兵值
const Unset int64 = -1

var (
	ErrUnsetTime           = errors.New("vehicle time values were not set")
	ErrDepartureSet        = errors.New("vehicle departure time already set")
	ErrDepartBeforeArrival = errors.New("vehicle departure time earlier than arrival time")
)

// Vehicle 车辆
// 功能：表示一辆到达路口等待通过的车辆
// 说明：编号、方向、到达时间在创建时确定；离开时间在通过路口时设置且只设置一次，
// 设置后车辆只读，不会被复用
type Vehicle struct {
	id        int64            // 全局唯一编号，单调递增
	direction entity.Direction // 驶入方向
	arrival   int64            // 到达时间（ms）
	departure atomic.Int64     // 离开时间（ms），未设置时为Unset
}

// New 创建车辆
// 功能：根据编号、方向和到达时间创建车辆，离开时间为Unset
// 参数：id-车辆编号，dir-方向，arrival-到达时间（ms）
// 返回：新创建的车辆
// 说明：非法方向属于致命的配置错误
func New(id int64, dir entity.Direction, arrival int64) *Vehicle {
	if !dir.Valid() {
		log.Panicf("panic: spawn vehicle %d: invalid direction %d", id, int32(dir))
	}
	v := &Vehicle{
		id:        id,
		direction: dir,
		arrival:   arrival,
	}
	v.departure.Store(Unset)
	return v
}

func (v *Vehicle) ID() int64 {
	return v.id
}

func (v *Vehicle) Direction() entity.Direction {
	return v.direction
}

// ArrivalTime 到达时间（ms）
func (v *Vehicle) ArrivalTime() int64 {
	return v.arrival
}

// DepartureTime 离开时间（ms），未通过路口时为Unset
func (v *Vehicle) DepartureTime() int64 {
	return v.departure.Load()
}

// Departed 是否已设置离开时间
func (v *Vehicle) Departed() bool {
	return v.departure.Load() != Unset
}

// SetDeparture 设置离开时间
// 功能：记录车辆开始通过路口的时刻
// 参数：ms-离开时间（ms）
// 返回：重复设置或离开早于到达时返回错误
func (v *Vehicle) SetDeparture(ms int64) error {
	if ms < v.arrival {
		return fmt.Errorf("%w: car %d arrival=%d departure=%d", ErrDepartBeforeArrival, v.id, v.arrival, ms)
	}
	if !v.departure.CompareAndSwap(Unset, ms) {
		return fmt.Errorf("%w: car %d", ErrDepartureSet, v.id)
	}
	return nil
}

// Waited 等待时长（ms）
// 返回：离开时间-到达时间，任一时间未设置时返回错误
func (v *Vehicle) Waited() (int64, error) {
	dep := v.departure.Load()
	if v.arrival < 0 || dep < 0 {
		return 0, fmt.Errorf("%w: car %d", ErrUnsetTime, v.id)
	}
	return dep - v.arrival, nil
}

// Cost 车辆的调度代价
// 功能：计算等待时长的平方（ms²）
// 返回：代价，任一时间未设置时返回ErrUnsetTime
// 说明：时间戳均为整数毫秒，平方结果无需舍入
func (v *Vehicle) Cost() (int64, error) {
	waited, err := v.Waited()
	if err != nil {
		return 0, err
	}
	return waited * waited, nil
}

func (v *Vehicle) String() string {
	return fmt.Sprintf("Car %d moving %s", v.id, v.direction)
}
