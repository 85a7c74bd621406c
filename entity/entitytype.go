package entity

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// LightState 信号灯状态
// 说明：取值与上游交通灯消息保持一致（RED=0, YELLOW=1, GREEN=2, UNKNOWN=4）
type LightState int32

const (
	LightStateRed     LightState = 0 // 红灯
	LightStateYellow  LightState = 1 // 黄灯
	LightStateGreen   LightState = 2 // 绿灯
	LightStateUnknown LightState = 4 // 未知（无数据或不可判定）
)

func (s LightState) String() string {
	switch s {
	case LightStateRed:
		return "RED"
	case LightStateYellow:
		return "YELLOW"
	case LightStateGreen:
		return "GREEN"
	case LightStateUnknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("LightState(%d)", int32(s))
	}
}

// IsStop 是否为需要停车的状态（红灯或黄灯）
func (s LightState) IsStop() bool {
	return s == LightStateRed || s == LightStateYellow
}

// Valid 检查取值是否为已定义的状态
func (s LightState) Valid() bool {
	switch s {
	case LightStateRed, LightStateYellow, LightStateGreen, LightStateUnknown:
		return true
	}
	return false
}

// StopWaypoint 发往运动规划器的停车点事件
// 功能：携带下一条停车线所在的路点索引与确认后的信号灯状态
type StopWaypoint struct {
	Index int        `json:"index"` // 停车线路点索引
	State LightState `json:"state"` // 确认后的信号灯状态
}

func (w StopWaypoint) String() string {
	return fmt.Sprintf("StopWaypoint{Index=%d, State=%v}", w.Index, w.State)
}

// LightRecord 一条信号灯真值记录
// 功能：描述仿真器上报的单个信号灯的位置与当前状态
// 说明：ID为空时按量化后的位置识别信号灯
type LightRecord struct {
	ID       string     // 信号灯稳定标识（可选）
	Position r2.Vec     // 信号灯位置
	State    LightState // 上报的状态
}

// Frame 相机图像帧
// 功能：保存最近一次收到的原始图像，内容对本模块不透明，由分类器负责解码
type Frame struct {
	Width    int    // 图像宽度（像素）
	Height   int    // 图像高度（像素）
	Encoding string // 像素编码，如rgb8/bgr8
	Data     []byte // 原始像素数据
}
