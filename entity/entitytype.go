package entity

import "time"

// 依赖倒置：各组件只依赖以下能力接口

// 仿真时钟能力（clock.Clock与clock.Manual均实现）
type IClock interface {
	Init()                 // 重新捕获epoch
	Now() int64            // 自epoch以来的毫秒数
	Seconds() int64        // 自epoch以来的整秒数
	Sleep(d time.Duration) // 阻塞（或在测试时钟中推进）d时长
}

// 共享计数器（车辆编号、已通过车辆数等）
type ICounter interface {
	Inc() int64 // 原子自增并返回新值
	Load() int64
}

// 共享代价累加器
type ICostAccumulator interface {
	Add(cost int64) int64 // 原子累加并返回新的总和
	Total() int64
}

// 事件接收者（日志协作者）
// 实现必须保证并发调用时单条事件的输出不被打断
type IEventSink interface {
	Emit(e Event)
}

// IRunSink 可按运行区分的事件接收者
type IRunSink interface {
	WithRun(runID string) IEventSink // 返回事件带有run标识的接收者
}

// EventKind 事件类型
type EventKind int32

const (
	EventArrival   EventKind = iota // 车辆到达路口
	EventDeparture                  // 车辆开始通过路口
	EventCompleted                  // 车辆完成通过
)

func (k EventKind) String() string {
	switch k {
	case EventArrival:
		return "arrival"
	case EventDeparture:
		return "departure"
	case EventCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Event 通知给日志协作者的事件
type Event struct {
	Kind      EventKind
	VehicleID int64
	Direction Direction
	ElapsedMs int64 // 事件发生时自epoch以来的毫秒数
}

// ElapsedSeconds 事件时间的整秒部分
func (e Event) ElapsedSeconds() int64 {
	return e.ElapsedMs / 1000
}

// ElapsedMillis 事件时间不足一秒的毫秒部分
func (e Event) ElapsedMillis() int64 {
	return e.ElapsedMs % 1000
}
