package sim

import (
	"errors"
	"fmt"

	"github.com/tsinghua-fib-lab/tldetector/entity"
	"gonum.org/v1/gonum/spatial/r2"
)

// Phase 信号灯相位
type Phase struct {
	State    entity.LightState // 相位内的信号灯状态
	Duration float64           // 持续时间（秒）
}

// tlRuntime 信号灯运行时数据
type tlRuntime struct {
	phases     []Phase
	step       int
	totalT     float64
	remainingT float64
}

// TrafficLight 固定相位信号灯
// 功能：按照预设的相位顺序和时间循环切换状态
// 说明：没有相位程序时保持绿灯
type TrafficLight struct {
	ID       string
	Position r2.Vec

	runtime tlRuntime
	buffer  *tlRuntime // 新程序，下一次Update时生效
}

// NewTrafficLight 创建固定相位信号灯
// 参数：id-信号灯标识，pos-位置，phases-相位程序，offset-起始相位
func NewTrafficLight(id string, pos r2.Vec, phases []Phase, offset int) (*TrafficLight, error) {
	l := &TrafficLight{ID: id, Position: pos}
	if err := l.Set(phases, offset); err != nil {
		return nil, err
	}
	l.runtime = *l.buffer
	l.buffer = nil
	return l, nil
}

// Set 设置相位程序
// 说明：程序设置会延迟到下一个更新周期生效；offset落在持续时间为0的相位上时顺延到下一个持续时间为正的相位
func (l *TrafficLight) Set(phases []Phase, offset int) error {
	if len(phases) == 0 {
		return errors.New("set with empty traffic light")
	}
	total := 0.
	for i, p := range phases {
		if !p.State.Valid() || p.State == entity.LightStateUnknown {
			return fmt.Errorf("phase %d: invalid state %v", i, p.State)
		}
		if p.Duration < 0 {
			return fmt.Errorf("phase %d: negative duration %v", i, p.Duration)
		}
		total += p.Duration
	}
	if total <= 0 {
		return errors.New("traffic light program has zero cycle time")
	}
	step := ((offset % len(phases)) + len(phases)) % len(phases)
	// 跳过持续时间为0的相位
	for phases[step].Duration <= 0 {
		step = (step + 1) % len(phases)
	}
	l.buffer = &tlRuntime{
		phases:     phases,
		step:       step,
		totalT:     phases[step].Duration,
		remainingT: phases[step].Duration,
	}
	return nil
}

// Unset 取消相位程序，信号灯变为常绿
func (l *TrafficLight) Unset() {
	l.buffer = &tlRuntime{}
}

// Update 推进时间
// 参数：dt-时间步长
// 算法说明：
// 1. 应用buffer中的新程序
// 2. 扣减当前相位剩余时间，用完后切换到下一个持续时间为正的相位
func (l *TrafficLight) Update(dt float64) {
	if l.buffer != nil {
		l.runtime = *l.buffer
		l.buffer = nil
	}
	if len(l.runtime.phases) == 0 {
		return
	}
	l.runtime.remainingT -= dt
	// 切换相位
	if l.runtime.remainingT <= 0 {
		l.runtime.remainingT = 0
		l.runtime.totalT = 0
		for {
			l.runtime.step = (l.runtime.step + 1) % len(l.runtime.phases)
			l.runtime.remainingT += l.runtime.phases[l.runtime.step].Duration
			if l.runtime.remainingT > 0 {
				l.runtime.totalT = l.runtime.remainingT
				break
			}
		}
	}
}

// State 当前信号灯状态
func (l *TrafficLight) State() entity.LightState {
	if len(l.runtime.phases) == 0 {
		return entity.LightStateGreen
	}
	return l.runtime.phases[l.runtime.step].State
}

// Remaining 当前相位剩余时间与总时间
func (l *TrafficLight) Remaining() (float64, float64) {
	return l.runtime.remainingT, l.runtime.totalT
}
