package clock

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	tldetectorv1 "github.com/tsinghua-fib-lab/tldetector/api/tldetector/v1"
	"github.com/tsinghua-fib-lab/tldetector/utils/codec"
)

// Register 将ClockService注册到HTTP路由
// 功能：注册时钟服务的RPC处理器
// 参数：mux-HTTP路由，opts-额外的handler选项
func (c *Clock) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	opts = append([]connect.HandlerOption{codec.WithJSON()}, opts...)
	mux.Handle(
		tldetectorv1.ClockServiceNowProcedure,
		connect.NewUnaryHandler(tldetectorv1.ClockServiceNowProcedure, c.Now, opts...),
	)
}

// Now 获取当前控制时间
// 功能：RPC接口，返回当前步数与控制时间
func (c *Clock) Now(ctx context.Context, in *connect.Request[tldetectorv1.NowRequest]) (*connect.Response[tldetectorv1.NowResponse], error) {
	return connect.NewResponse(&tldetectorv1.NowResponse{
		Step: c.Step(),
		T:    c.T(),
	}), nil
}
