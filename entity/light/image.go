package light

import (
	"context"

	"github.com/tsinghua-fib-lab/tldetector/entity"
)

var (
	_ entity.ILightStateSource = (*ImageSource)(nil)
	_ entity.IImageSink        = (*ImageSource)(nil)
)

// ImageSource 图像驱动的信号灯数据源
// 功能：保存最近一帧相机图像，采样时交给外部分类器判定
// 说明：不做任何去抖，返回可能带噪声的原始分类结果
type ImageSource struct {
	ctx        entity.ITaskContext
	classifier entity.IClassifier

	width, height int           // 配置的相机分辨率
	frame         *entity.Frame // 最近一帧图像，每次到达时整体替换，不排队
	mismatched    uint64        // 分辨率与配置不一致的帧数
}

// NewImageSource 创建图像驱动的数据源
// 参数：ctx-任务上下文，classifier-外部分类器
func NewImageSource(ctx entity.ITaskContext, classifier entity.IClassifier) *ImageSource {
	camera := ctx.RuntimeConfig().All.Camera
	return &ImageSource{
		ctx:        ctx,
		classifier: classifier,
		width:      camera.ImageWidth,
		height:     camera.ImageHeight,
	}
}

func (s *ImageSource) Name() string {
	return "image"
}

// SetFrame 替换最近一帧图像
// 说明：分辨率与配置不一致时记录告警（首帧及此后每100帧一次），图像仍交给分类器处理
func (s *ImageSource) SetFrame(frame *entity.Frame) {
	if frame == nil {
		return
	}
	if frame.Width != s.width || frame.Height != s.height {
		if s.mismatched%100 == 0 {
			log.Warnf("frame size %dx%d differs from camera %dx%d (%d mismatched frames)",
				frame.Width, frame.Height, s.width, s.height, s.mismatched+1)
		}
		s.mismatched++
	}
	s.frame = frame
}

// HasFrame 是否已经收到过图像
func (s *ImageSource) HasFrame() bool {
	return s.frame != nil
}

// Sample 采样
// 功能：持锁时复制当前帧的引用，返回在锁外调用分类器的采样函数
// 说明：没有图像时返回UNKNOWN；分类失败或结果非法时本周期返回UNKNOWN
func (s *ImageSource) Sample(entity.IRouteTrack) entity.LightSample {
	frame := s.frame
	if frame == nil {
		return unknown
	}
	classifier, step := s.classifier, s.ctx.Clock().Step()
	return func(ctx context.Context) entity.LightState {
		state, err := classifier.Classify(ctx, frame)
		if err != nil {
			log.Warnf("classify frame at step %d: %v", step, err)
			return entity.LightStateUnknown
		}
		if !state.Valid() {
			log.Warnf("classifier returned invalid state %v", state)
			return entity.LightStateUnknown
		}
		return state
	}
}

// unknown 无数据时的采样
func unknown(context.Context) entity.LightState {
	return entity.LightStateUnknown
}
