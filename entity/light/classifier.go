package light

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	tldetectorv1 "github.com/tsinghua-fib-lab/tldetector/api/tldetector/v1"
	"github.com/tsinghua-fib-lab/tldetector/entity"
	"github.com/tsinghua-fib-lab/tldetector/utils/codec"
	"github.com/tsinghua-fib-lab/tldetector/utils/config"
)

var (
	_ entity.IClassifier = (*RemoteClassifier)(nil)
	_ entity.IClassifier = ClassifierFunc(nil)
)

// ClassifierFunc 函数形式的分类器
type ClassifierFunc func(ctx context.Context, frame *entity.Frame) (entity.LightState, error)

func (f ClassifierFunc) Classify(ctx context.Context, frame *entity.Frame) (entity.LightState, error) {
	return f(ctx, frame)
}

// RemoteClassifier 外部分类服务客户端
// 功能：通过connect调用独立部署的信号灯分类服务
type RemoteClassifier struct {
	client *connect.Client[tldetectorv1.ClassifyRequest, tldetectorv1.ClassifyResponse]
	c      config.Classifier
}

// NewRemoteClassifier 创建外部分类服务客户端
// 参数：httpClient-HTTP客户端，c-分类服务配置
func NewRemoteClassifier(httpClient connect.HTTPClient, c config.Classifier) *RemoteClassifier {
	return &RemoteClassifier{
		client: connect.NewClient[tldetectorv1.ClassifyRequest, tldetectorv1.ClassifyResponse](
			httpClient,
			c.Addr+tldetectorv1.ClassifierServiceClassifyProcedure,
			codec.WithJSON(),
		),
		c: c,
	}
}

// Classify 调用外部分类服务
// 返回：分类结果；请求失败或返回非法状态时返回错误
func (r *RemoteClassifier) Classify(ctx context.Context, frame *entity.Frame) (entity.LightState, error) {
	if r.c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.c.Timeout)
		defer cancel()
	}
	res, err := r.client.CallUnary(ctx, connect.NewRequest(&tldetectorv1.ClassifyRequest{
		Variant: r.c.Variant,
		Image: tldetectorv1.UpdateImageRequest{
			Width:    frame.Width,
			Height:   frame.Height,
			Encoding: frame.Encoding,
			Data:     frame.Data,
		},
	}))
	if err != nil {
		return entity.LightStateUnknown, fmt.Errorf("classify: %w", err)
	}
	state := entity.LightState(res.Msg.State)
	if !state.Valid() {
		return entity.LightStateUnknown, fmt.Errorf("classify: invalid state %d", res.Msg.State)
	}
	return state, nil
}
