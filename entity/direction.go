package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidDirection = errors.New("invalid direction")
)

// Direction 车辆驶入路口的方向
type Direction int32

const (
	North Direction = iota
	South
	East
	West
)

// Directions 全部方向，顺序即各方向任务的启动顺序
var Directions = []Direction{North, South, East, West}

// Valid 检查方向是否属于枚举范围
func (d Direction) Valid() bool {
	return d >= North && d <= West
}

// String 获取方向名
// 功能：返回方向的大写英文名
// 说明：非法方向属于致命的配置错误，直接panic
func (d Direction) String() string {
	switch d {
	case North:
		return "NORTH"
	case South:
		return "SOUTH"
	case East:
		return "EAST"
	case West:
		return "WEST"
	default:
		log.Panicf("panic: direction string: invalid direction %d", int32(d))
		return ""
	}
}

// ParseDirection 根据名称解析方向（不区分大小写）
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NORTH":
		return North, nil
	case "SOUTH":
		return South, nil
	case "EAST":
		return East, nil
	case "WEST":
		return West, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// UnmarshalYAML 从YAML字符串解析方向
func (d *Direction) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseDirection(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML 将方向序列化为名称
func (d Direction) MarshalYAML() (interface{}, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDirection, int32(d))
	}
	return d.String(), nil
}
