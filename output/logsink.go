package output

import (
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/crossroad-sim/clock"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity"
)

// LogSink 基于logrus的事件输出
// 功能：把到达、开始通过、完成通过事件输出为带时间戳前缀的日志行
// 说明：logrus在写出时持有Logger内部互斥锁，并发事件不会在行内交错
type LogSink struct {
	entry *logrus.Entry
}

// NewLogSink 创建事件日志输出
func NewLogSink() *LogSink {
	return &LogSink{entry: log}
}

// WithRun 返回带有run字段的事件日志输出
func (s *LogSink) WithRun(runID string) entity.IEventSink {
	return &LogSink{entry: s.entry.WithField("run", runID)}
}

func (s *LogSink) Emit(e entity.Event) {
	entry := s.entry.WithFields(logrus.Fields{
		"event": e.Kind.String(),
		"car":   e.VehicleID,
		"dir":   e.Direction.String(),
		"ms":    e.ElapsedMs,
	})
	stamp := clock.FormatStamp(e.ElapsedMs)
	switch e.Kind {
	case entity.EventArrival:
		entry.Infof("%s   Arrival: Car %d moving %s.", stamp, e.VehicleID, e.Direction)
	case entity.EventDeparture:
		entry.Infof("%s   Departure: Car %d moving %s!", stamp, e.VehicleID, e.Direction)
	case entity.EventCompleted:
		entry.Infof("%s   Car %d finished moving %s.", stamp, e.VehicleID, e.Direction)
	default:
		entry.Warnf("%s   unknown event %d for car %d", stamp, int32(e.Kind), e.VehicleID)
	}
}

// Multi 将事件依次转发给多个接收者
type Multi []entity.IEventSink

// WithRun 对支持的接收者附加run标识，其余原样保留
func (m Multi) WithRun(runID string) entity.IEventSink {
	return Multi(lo.Map(m, func(s entity.IEventSink, _ int) entity.IEventSink {
		if rs, ok := s.(entity.IRunSink); ok {
			return rs.WithRun(runID)
		}
		return s
	}))
}

func (m Multi) Emit(e entity.Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}
