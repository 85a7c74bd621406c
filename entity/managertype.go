package entity

import (
	"context"

	"gonum.org/v1/gonum/spatial/r2"
)

// 组件依赖倒置
// 说明：以下组件本身不做并发保护，所有调用都在task.Context持有状态锁时进行

// entity/route/track.go的依赖倒置
type IRouteTrack interface {
	Load(waypoints []r2.Vec)                                     // 整体替换路线，车辆索引失效
	UpdatePose(pos r2.Vec, stopLines IStopLineIndex) (int, bool) // 根据位姿推进车辆索引
	Closest(point r2.Vec) (int, error)                           // 全量搜索最近路点

	Loaded() bool              // 是否已加载路线
	Len() int                  // 路点数量
	Index() (int, bool)        // 当前车辆索引
	Waypoint(i int) r2.Vec     // 获取路点坐标
	Distance(i, j int) float64 // 两个路点间的欧氏距离
}

// entity/stopline/index.go的依赖倒置
type IStopLineIndex interface {
	Build(track IRouteTrack, positions []r2.Vec) error // 将停车线几何位置绑定到路点
	NextAfter(index int) (int, bool)                   // 严格大于index的最近停车线
	Last() (int, bool)                                 // 最后一条停车线
	Indices() []int                                    // 全部停车线（升序）
	Len() int                                          // 停车线数量
}

// LightSample 一次信号灯状态采样
// 说明：在释放状态锁后求值，允许其中执行分类器调用等耗时操作
type LightSample func(ctx context.Context) LightState

// entity/light的依赖倒置
type ILightStateSource interface {
	Name() string                         // 数据源名称，用于日志与状态查询
	Sample(track IRouteTrack) LightSample // 持锁调用，复制当前所需数据并返回采样函数
}

// 图像驱动数据源的写入接口
type IImageSink interface {
	SetFrame(frame *Frame) // 替换最近一帧图像
}

// 真值数据源的写入接口
type ILightArraySink interface {
	UpdateLights(records []LightRecord, track IRouteTrack) // 绑定或原地更新信号灯状态
}

// 外部信号灯分类器
type IClassifier interface {
	Classify(ctx context.Context, frame *Frame) (LightState, error)
}

// 停车点事件发布接口
type IPublisher interface {
	Publish(w StopWaypoint)
}
