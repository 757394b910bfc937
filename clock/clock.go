package clock

import (
	"fmt"
	"time"
)

// Clock 仿真时钟
// 功能：记录仿真开始时刻（epoch），提供自epoch以来的毫秒/秒级运行时间
// 说明：基于time.Time的单调时钟读数计算经过时间，不受系统时钟调整影响
type Clock struct {
	epoch time.Time // 仿真开始时刻，仅在Init中写入
}

// New 创建新的时钟实例
// 功能：创建时钟并立即捕获epoch
// 返回：初始化完成的时钟实例
// 说明：必须在任何车辆生成器启动之前调用
func New() *Clock {
	c := &Clock{}
	c.Init()
	return c
}

// Init 重置时钟起点
// 功能：将epoch设置为当前时刻，用于每一轮仿真开始前
func (c *Clock) Init() {
	c.epoch = time.Now()
}

// Now 获取自epoch以来经过的毫秒数
func (c *Clock) Now() int64 {
	return time.Since(c.epoch).Milliseconds()
}

// Seconds 获取自epoch以来经过的整秒数
func (c *Clock) Seconds() int64 {
	return int64(time.Since(c.epoch) / time.Second)
}

// Sleep 阻塞当前协程d时长
func (c *Clock) Sleep(d time.Duration) {
	time.Sleep(d)
}

func split(ms int64) (int64, int64) {
	return ms / 1000, ms % 1000
}

// FormatStamp 将毫秒数格式化为日志前缀"[XsYms]"
func FormatStamp(ms int64) string {
	sec, rest := split(ms)
	return fmt.Sprintf("[%ds%dms]", sec, rest)
}
