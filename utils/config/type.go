package config

import (
	"fmt"

	"github.com/tsinghua-fib-lab/crossroad-sim/entity"
)

// BurstAwait 并行调度中一次批量放行后释放路口前的等待策略
type BurstAwait string

const (
	AwaitLast BurstAwait = "last" // 只等待最后一辆发出的车辆通过完成
	AwaitAll  BurstAwait = "all"  // 等待该批全部车辆通过完成
)

// UnmarshalYAML 解析并校验等待策略
func (a *BurstAwait) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	switch BurstAwait(s) {
	case AwaitLast, AwaitAll:
		*a = BurstAwait(s)
		return nil
	default:
		return fmt.Errorf("%w: burst_await %q (want %q or %q)", ErrInvalidConfig, s, AwaitLast, AwaitAll)
	}
}

// Control 仿真过程控制配置
// 功能：定义仿真时长、车辆到达、容量与通过时间等核心参数
type Control struct {
	StopSeconds    int64  `yaml:"stop_seconds"`     // 每轮仿真运行时长（秒）
	ArrivalBoundMs int64  `yaml:"arrival_bound_ms"` // 车辆到达间隔上限（毫秒，不包含）
	Capacity       int    `yaml:"capacity"`         // 每个方向队列的容量，<=0表示不限
	TransitMs      int64  `yaml:"transit_ms"`       // 单车通过路口耗时（毫秒）
	Seed           uint64 `yaml:"seed,omitempty"`   // 随机数种子，为0则按时间生成
}

// Parallel 并行调度（批量放行）配置
type Parallel struct {
	StaggerMs         int64              `yaml:"stagger_ms"`         // 批量放行时相邻两车的发车间隔（毫秒）
	BurstAwait        BurstAwait         `yaml:"burst_await"`        // 释放路口前的等待策略
	DoubledDirections []entity.Direction `yaml:"doubled_directions"` // 每次到达生成两辆车的方向
}

// Config YAML配置文件的根结构
type Config struct {
	Control  Control  `yaml:"control"`  // 模拟过程控制
	Parallel Parallel `yaml:"parallel"` // 并行调度
}
