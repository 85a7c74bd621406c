package clock

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tsinghua-fib-lab/tldetector/utils/config"
)

// Clock 控制循环时钟
// 功能：管理控制循环的固定周期与步数
// 说明：步数由控制循环推进，可被RPC并发读取
type Clock struct {
	DT time.Duration // 控制周期

	step atomic.Int64 // 当前步数
}

// New 根据配置创建新的时钟实例
// 功能：根据控制循环频率计算控制周期
// 参数：control-控制循环配置
// 返回：初始化完成的时钟实例
func New(control config.Control) *Clock {
	rate := control.Rate
	if rate <= 0 {
		rate = config.DefaultRate
	}
	c := &Clock{
		DT: time.Duration(float64(time.Second) / rate),
	}
	c.Init()
	return c
}

// Init 重置步数
func (c *Clock) Init() {
	c.step.Store(0)
}

// Tick 推进一步，返回推进后的步数
func (c *Clock) Tick() int64 {
	return c.step.Add(1)
}

// Step 当前步数
func (c *Clock) Step() int64 {
	return c.step.Load()
}

// T 启动以来的控制时间（秒）
func (c *Clock) T() float64 {
	return float64(c.Step()) * c.DT.Seconds()
}

// NewTicker 创建按控制周期触发的Ticker
func (c *Clock) NewTicker() *time.Ticker {
	return time.NewTicker(c.DT)
}

// String 获取时钟的字符串表示
// 功能：将控制时间格式化为HH:MM:SS
func (c *Clock) String() string {
	hour, minute, second := c.GetHourMinuteSecond()
	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, int(second))
}

// GetHourMinuteSecond 获取当前控制时间的小时、分钟、秒
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	t := c.T()
	hour := int(t) / 3600
	minute := int(t) % 3600 / 60
	second := t - float64(hour*3600+minute*60)
	return hour, minute, second
}
