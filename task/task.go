package task

import (
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
	tldetectorv1 "github.com/tsinghua-fib-lab/tldetector/api/tldetector/v1"
	"github.com/tsinghua-fib-lab/tldetector/clock"
	"github.com/tsinghua-fib-lab/tldetector/entity"
	"github.com/tsinghua-fib-lab/tldetector/entity/debounce"
	"github.com/tsinghua-fib-lab/tldetector/entity/light"
	"github.com/tsinghua-fib-lab/tldetector/entity/route"
	"github.com/tsinghua-fib-lab/tldetector/entity/stopline"
	"github.com/tsinghua-fib-lab/tldetector/utils/config"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	ErrWrongVariant = errors.New("message does not match the configured light source")
	ErrNoClassifier = errors.New("image light source requires a classifier")
	ErrEmptyFrame   = errors.New("empty image frame")
	ErrInvalidState = errors.New("invalid traffic light state")
)

// Context 检测任务上下文
// 功能：包含检测器的全部共享状态，替代全局变量
// 说明：路线、停车线、信号灯数据与去抖状态由同一把锁保护；
// 各消息处理函数与控制循环都只在读写这些字段时短暂持锁，分类器调用与事件发布都在锁外进行
type Context struct {
	// 状态锁
	mu sync.Mutex

	// 时钟
	clock *clock.Clock
	// 运行时配置
	runtimeConfig *config.RuntimeConfig

	// 路线与车辆位置
	track entity.IRouteTrack
	// 停车线索引
	stopLines entity.IStopLineIndex
	// 停车线几何位置，启动时加载
	stopLinePositions []r2.Vec

	// 信号灯数据源
	source entity.ILightStateSource
	// 图像写入接口（仅图像模式）
	images entity.IImageSink
	// 真值写入接口（仅真值模式）
	lights entity.ILightArraySink

	// 去抖器
	debouncer *debounce.Debouncer
	// 事件发布
	publisher *Publisher

	// 没有前方停车线而跳过的步数
	skipped uint64
	// 路线版本，每次OnRoute加一
	routeGen uint64
}

// NewContext 创建检测任务上下文
// 功能：按配置选择信号灯数据源并创建各组件
// 参数：rc-运行时配置，classifier-外部分类器（仅图像模式需要）
// 返回：上下文与错误
func NewContext(rc *config.RuntimeConfig, classifier entity.IClassifier) (*Context, error) {
	ctx := &Context{
		clock:         clock.New(rc.C),
		runtimeConfig: rc,
		track:         route.New(),
		stopLines:     stopline.New(),
		stopLinePositions: lo.Map(rc.StopLines, func(p [2]float64, _ int) r2.Vec {
			return r2.Vec{X: p[0], Y: p[1]}
		}),
		debouncer: debounce.New(rc.C.StateCountThreshold),
		publisher: NewPublisher(),
	}
	if rc.All.Detector.GroundTruth {
		s := light.NewGroundTruthSource(ctx)
		ctx.source, ctx.lights = s, s
	} else {
		if classifier == nil {
			return nil, ErrNoClassifier
		}
		s := light.NewImageSource(ctx, classifier)
		ctx.source, ctx.images = s, s
	}
	if len(ctx.stopLinePositions) == 0 {
		log.Warn("no stop line positions configured, no stop waypoint will ever be published")
	}
	log.Infof("light source: %s, stop lines: %d, threshold: %d",
		ctx.source.Name(), len(ctx.stopLinePositions), rc.C.StateCountThreshold)
	return ctx, nil
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) Publisher() *Publisher {
	return ctx.publisher
}

// OnPose 处理车辆位姿
// 返回：车辆路点索引与是否有效（没有路线时无效）
func (ctx *Context) OnPose(pos r2.Vec) (int, bool) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.track.UpdatePose(pos, ctx.stopLines)
}

// OnRoute 处理完整路线
// 功能：整体替换路线并用启动时加载的停车线位置重建停车线索引
// 返回：停车线路点索引（升序）与错误
// 说明：空路线且配置了停车线时无法绑定，记录错误日志并返回错误，此时停车线索引为空
func (ctx *Context) OnRoute(waypoints []r2.Vec) ([]int, error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.routeGen++
	ctx.track.Load(waypoints)
	if err := ctx.stopLines.Build(ctx.track, ctx.stopLinePositions); err != nil {
		log.Errorf("route with %d waypoints: %v", len(waypoints), err)
		return nil, err
	}
	indices := ctx.stopLines.Indices()
	log.Infof("route loaded: %d waypoints, stop lines at %v", len(waypoints), indices)
	return indices, nil
}

// OnImage 处理相机图像（仅图像模式）
func (ctx *Context) OnImage(frame *entity.Frame) error {
	if ctx.images == nil {
		return ErrWrongVariant
	}
	if frame == nil || frame.Width <= 0 || frame.Height <= 0 || len(frame.Data) == 0 {
		return ErrEmptyFrame
	}
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.images.SetFrame(frame)
	return nil
}

// OnLights 处理信号灯真值数组（仅真值模式）
// 返回：已绑定的信号灯数量与错误
func (ctx *Context) OnLights(records []entity.LightRecord) (int, error) {
	if ctx.lights == nil {
		return 0, ErrWrongVariant
	}
	for _, r := range records {
		if !r.State.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidState, r.State)
		}
	}
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.lights.UpdateLights(records, ctx.track)
	return ctx.lightsBound(), nil
}

// lightsBound 真值模式下已绑定的信号灯数量（需持锁）
func (ctx *Context) lightsBound() int {
	if b, ok := ctx.source.(interface{ Bound() int }); ok {
		return b.Bound()
	}
	return 0
}

// Status 检测器状态
func (ctx *Context) Status() *tldetectorv1.GetStatusResponse {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	vehicle, hasVehicle := ctx.track.Index()
	snapshot := ctx.debouncer.Snapshot()
	status := &tldetectorv1.GetStatusResponse{
		Source:       ctx.source.Name(),
		Step:         ctx.clock.Step(),
		RouteLength:  ctx.track.Len(),
		VehicleIndex: vehicle,
		HasVehicle:   hasVehicle,
		StopLines:    ctx.stopLines.Indices(),
		State:        int32(snapshot.State),
		StateCount:   snapshot.Count,
		LastStopLine: snapshot.LastStopLine,
		HasPublished: snapshot.HasPublished,
		Published:    ctx.publisher.Published(),
		SkippedTicks: ctx.skipped,
		LightsBound:  ctx.lightsBound(),
	}
	if f, ok := ctx.source.(interface{ HasFrame() bool }); ok {
		status.HasCameraData = f.HasFrame()
	}
	return status
}
