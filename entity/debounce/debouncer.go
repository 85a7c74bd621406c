package debounce

import (
	"github.com/tsinghua-fib-lab/tldetector/entity"
)

// Snapshot 去抖器状态快照
type Snapshot struct {
	State        entity.LightState // 当前候选状态
	Count        int               // 连续相同观测计数
	LastStopLine int               // 上次发布的停车线
	HasPublished bool              // 是否发布过
}

// Debouncer 信号灯状态去抖器
// 功能：把逐周期的原始信号灯观测转换为稳定、限频的停车点事件
// 说明：
//   - 同一状态连续观测到threshold次时首次发布
//   - 此后计数继续增长，仅当目标停车线变化时才再次发布
//   - 没有终止状态，伴随进程整个生命周期运行
type Debouncer struct {
	threshold int

	state        entity.LightState
	count        int
	lastStopLine int
	hasPublished bool
}

// New 创建去抖器
// 参数：threshold-连续相同观测次数阈值
func New(threshold int) *Debouncer {
	return &Debouncer{
		threshold: threshold,
		state:     entity.LightStateUnknown,
	}
}

// Step 输入一个周期的观测
// 参数：stopLine-前方停车线索引，ok-是否存在前方停车线，raw-原始信号灯状态
// 返回：需要发布的事件与是否发布
// 算法说明：
// 1. 没有前方停车线：不做任何处理，计数保持不变
// 2. 原始状态与候选状态不同：替换候选状态，计数清零
// 3. 原始状态与候选状态相同：计数恰好等于阈值，或计数超过阈值且停车线与上次发布的不同，则发布并记录停车线
// 4. 只要存在停车线，计数在判断后加一
func (d *Debouncer) Step(stopLine int, ok bool, raw entity.LightState) (entity.StopWaypoint, bool) {
	if !ok {
		return entity.StopWaypoint{}, false
	}
	var (
		w       entity.StopWaypoint
		publish bool
	)
	if raw != d.state {
		d.state = raw
		d.count = 0
	} else if d.count == d.threshold ||
		d.count > d.threshold && (!d.hasPublished || d.lastStopLine != stopLine) {
		d.lastStopLine = stopLine
		d.hasPublished = true
		w = entity.StopWaypoint{Index: stopLine, State: d.state}
		publish = true
	}
	d.count++
	return w, publish
}

// Snapshot 当前状态快照
func (d *Debouncer) Snapshot() Snapshot {
	return Snapshot{
		State:        d.state,
		Count:        d.count,
		LastStopLine: d.lastStopLine,
		HasPublished: d.hasPublished,
	}
}

func (d *Debouncer) Threshold() int {
	return d.threshold
}
