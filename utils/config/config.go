package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/crossroad-sim/entity"
	"gopkg.in/yaml.v2"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
)

// Default 默认配置
// 说明：60秒仿真、2000ms到达间隔上限、每方向100辆、500ms通过时间、
// 50ms批量发车间隔、NORTH与EAST双倍到达
func Default() Config {
	return Config{
		Control: Control{
			StopSeconds:    60,
			ArrivalBoundMs: 2000,
			Capacity:       100,
			TransitMs:      500,
		},
		Parallel: Parallel{
			StaggerMs:         50,
			BurstAwait:        AwaitLast,
			DoubledDirections: []entity.Direction{entity.North, entity.East},
		},
	}
}

// Load 从YAML数据加载配置
// 功能：在默认配置的基础上覆盖YAML中给出的字段，并进行校验
// 参数：data-YAML文本
// 返回：配置与错误信息，未知字段或非法取值均返回错误
func Load(data []byte) (Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("config load err: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.Control.StopSeconds <= 0 {
		return fmt.Errorf("%w: stop_seconds must be positive, got %d", ErrInvalidConfig, c.Control.StopSeconds)
	}
	if c.Control.ArrivalBoundMs <= 0 {
		return fmt.Errorf("%w: arrival_bound_ms must be positive, got %d", ErrInvalidConfig, c.Control.ArrivalBoundMs)
	}
	if c.Control.TransitMs < 0 {
		return fmt.Errorf("%w: transit_ms must not be negative, got %d", ErrInvalidConfig, c.Control.TransitMs)
	}
	if c.Parallel.StaggerMs < 0 {
		return fmt.Errorf("%w: stagger_ms must not be negative, got %d", ErrInvalidConfig, c.Parallel.StaggerMs)
	}
	switch c.Parallel.BurstAwait {
	case AwaitLast, AwaitAll:
	default:
		return fmt.Errorf("%w: burst_await %q", ErrInvalidConfig, c.Parallel.BurstAwait)
	}
	for _, d := range c.Parallel.DoubledDirections {
		if !d.Valid() {
			return fmt.Errorf("%w: %w: %d", ErrInvalidConfig, entity.ErrInvalidDirection, int32(d))
		}
	}
	return nil
}

// RuntimeConfig 运行时配置
// 功能：将YAML中的整数毫秒/秒转换为time.Duration，并把方向列表转换为集合
type RuntimeConfig struct {
	All Config // 全部配置

	Stop         time.Duration // 每轮仿真运行时长
	ArrivalBound time.Duration // 到达间隔上限
	Transit      time.Duration // 单车通过耗时
	Stagger      time.Duration // 批量发车间隔
	Capacity     int
	Seed         uint64
	BurstAwait   BurstAwait
	Doubled      map[entity.Direction]bool // 双倍到达的方向集合
}

// NewRuntimeConfig 根据配置生成运行时配置
// 参数：config-原始配置对象（应已通过Validate）
// 返回：运行时配置指针
func NewRuntimeConfig(config Config) *RuntimeConfig {
	return &RuntimeConfig{
		All:          config,
		Stop:         time.Duration(config.Control.StopSeconds) * time.Second,
		ArrivalBound: time.Duration(config.Control.ArrivalBoundMs) * time.Millisecond,
		Transit:      time.Duration(config.Control.TransitMs) * time.Millisecond,
		Stagger:      time.Duration(config.Parallel.StaggerMs) * time.Millisecond,
		Capacity:     config.Control.Capacity,
		Seed:         config.Control.Seed,
		BurstAwait:   config.Parallel.BurstAwait,
		Doubled: lo.SliceToMap(lo.Uniq(config.Parallel.DoubledDirections), func(d entity.Direction) (entity.Direction, bool) {
			return d, true
		}),
	}
}

// StopSeconds 每轮仿真运行时长（整秒），用于与时钟的整秒数比较
func (rc *RuntimeConfig) StopSeconds() int64 {
	return rc.All.Control.StopSeconds
}
