// 检测器对外接口的消息定义与RPC路径
// 消息以JSON编码（utils/codec.JSON）通过connect协议传输
package tldetectorv1

import (
	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	DetectorServiceName = "tldetector.v1.DetectorService"
	ClockServiceName    = "tldetector.v1.ClockService"

	DetectorServiceUpdatePoseProcedure          = "/" + DetectorServiceName + "/UpdatePose"
	DetectorServiceUpdateRouteProcedure         = "/" + DetectorServiceName + "/UpdateRoute"
	DetectorServiceUpdateImageProcedure         = "/" + DetectorServiceName + "/UpdateImage"
	DetectorServiceUpdateTrafficLightsProcedure = "/" + DetectorServiceName + "/UpdateTrafficLights"
	DetectorServiceGetStatusProcedure           = "/" + DetectorServiceName + "/GetStatus"
	DetectorServiceWatchStopWaypointsProcedure  = "/" + DetectorServiceName + "/WatchStopWaypoints"
	ClockServiceNowProcedure                    = "/" + ClockServiceName + "/Now"
)

// Position 平面坐标
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Position) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

func NewPosition(v r2.Vec) Position {
	return Position{X: v.X, Y: v.Y}
}

// Vecs 批量转换坐标
func Vecs(ps []Position) []r2.Vec {
	return lo.Map(ps, func(p Position, _ int) r2.Vec { return p.Vec() })
}

// NewPositions 批量转换坐标
func NewPositions(vs []r2.Vec) []Position {
	return lo.Map(vs, func(v r2.Vec, _ int) Position { return NewPosition(v) })
}

type UpdatePoseRequest struct {
	Position Position `json:"position"` // 车辆当前位置
}

type UpdatePoseResponse struct {
	Index int  `json:"index"` // 车辆所在路点索引
	Ok    bool `json:"ok"`    // 是否已有路线（false时index无意义）
}

type UpdateRouteRequest struct {
	Waypoints []Position `json:"waypoints"` // 完整的有序路点列表
}

type UpdateRouteResponse struct {
	StopLines []int `json:"stop_lines"` // 绑定后的停车线路点索引（升序）
}

type UpdateImageRequest struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Encoding string `json:"encoding"`
	Data     []byte `json:"data"`
}

type UpdateImageResponse struct{}

// TrafficLight 单个信号灯真值
type TrafficLight struct {
	ID       string   `json:"id,omitempty"` // 稳定标识（可选）
	Position Position `json:"position"`
	State    int32    `json:"state"` // RED=0, YELLOW=1, GREEN=2, UNKNOWN=4
}

type UpdateTrafficLightsRequest struct {
	Lights []TrafficLight `json:"lights"`
}

type UpdateTrafficLightsResponse struct {
	Bound int `json:"bound"` // 已绑定到路点的信号灯数量
}

type StopWaypoint struct {
	Index int   `json:"index"`
	State int32 `json:"state"`
}

type WatchStopWaypointsRequest struct{}

type GetStatusRequest struct{}

type GetStatusResponse struct {
	Source        string `json:"source"`          // 信号灯数据源
	Step          int64  `json:"step"`            // 控制循环步数
	RouteLength   int    `json:"route_length"`    // 路点数量
	VehicleIndex  int    `json:"vehicle_index"`   // 车辆路点索引
	HasVehicle    bool   `json:"has_vehicle"`     // 车辆索引是否有效
	StopLines     []int  `json:"stop_lines"`      // 停车线索引
	State         int32  `json:"state"`           // 去抖器当前状态
	StateCount    int    `json:"state_count"`     // 连续计数
	LastStopLine  int    `json:"last_stop_line"`  // 上次发布的停车线
	HasPublished  bool   `json:"has_published"`   // 是否发布过
	Published     uint64 `json:"published"`       // 累计发布次数
	SkippedTicks  uint64 `json:"skipped_ticks"`   // 无停车线而跳过的步数
	LightsBound   int    `json:"lights_bound"`    // 真值模式下已绑定的信号灯数量
	HasCameraData bool   `json:"has_camera_data"` // 图像模式下是否已有图像
}

type NowRequest struct{}

type NowResponse struct {
	Step int64   `json:"step"` // 当前步数
	T    float64 `json:"t"`    // 启动以来的控制时间（秒）
}
