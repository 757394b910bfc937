package task

import (
	"math"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity/generator"
)

// Policy 调度策略
type Policy string

const (
	PolicySimple   Policy = "simple"
	PolicyParallel Policy = "parallel"
)

// Report 一轮仿真的结果
type Report struct {
	Policy        Policy
	RunID         string
	Cost          int64   // 等待时长平方和（ms²）
	SecondsWaited float64 // sqrt(Cost)/1000
	Arrived       int64   // 加入队列的车辆数
	Dropped       int     // 因队列满而丢弃的车辆数
	Departed      int64   // 完成通过的车辆数
	PerDirection  map[entity.Direction]int64
	Episodes      int64 // 占用路口的次数
	MaxHolders    int32 // 同时占用路口的最大数目
	MaxActive     int32 // 同时通过路口的最大车辆数

	HasBaseline bool
	Baseline    int64 // 简单调度的代价
	Diff        int64 // Baseline - Cost
}

// report 根据当前共享状态生成报告
func (ctx *Context) report(policy Policy, runID string) Report {
	cost := ctx.cost.Total()
	dropped := lo.SumBy(lo.Values(ctx.generators), func(g *generator.Generator) int {
		return g.Dropped()
	})
	perDirection := lo.MapValues(ctx.queues, func(q *generator.Queue, _ entity.Direction) int64 {
		return int64(q.Cursor())
	})
	return Report{
		Policy:        policy,
		RunID:         runID,
		Cost:          cost,
		SecondsWaited: math.Sqrt(float64(cost)) / 1000,
		Arrived:       ctx.arrived.Load(),
		Dropped:       dropped,
		Departed:      ctx.departed.Load(),
		PerDirection:  perDirection,
		Episodes:      ctx.gate.Episodes(),
		MaxHolders:    ctx.gate.MaxHolders(),
		MaxActive:     ctx.crossing.MaxActive(),
	}
}

// Log 输出报告
func (r Report) Log() {
	entry := log.WithFields(logrus.Fields{
		"run":      r.RunID,
		"policy":   r.Policy,
		"arrived":  r.Arrived,
		"departed": r.Departed,
		"dropped":  r.Dropped,
	})
	entry.Infof("Total time waited ~= %fs", r.SecondsWaited)
	entry.Infof("Final cost = %dms", r.Cost)
	if r.HasBaseline {
		entry.Infof("Difference in cost = %dms", r.Diff)
	}
	for _, dir := range entity.Directions {
		entry.Debugf("%s departed %d", dir, r.PerDirection[dir])
	}
}
