package task

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/samber/lo"
	tldetectorv1 "github.com/tsinghua-fib-lab/tldetector/api/tldetector/v1"
	"github.com/tsinghua-fib-lab/tldetector/entity"
	"github.com/tsinghua-fib-lab/tldetector/entity/route"
	"github.com/tsinghua-fib-lab/tldetector/utils/codec"
)

// Register 将DetectorService与ClockService注册到HTTP路由
func (ctx *Context) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	ctx.clock.Register(mux, opts...)

	opts = append([]connect.HandlerOption{codec.WithJSON()}, opts...)
	mux.Handle(
		tldetectorv1.DetectorServiceUpdatePoseProcedure,
		connect.NewUnaryHandler(tldetectorv1.DetectorServiceUpdatePoseProcedure, ctx.UpdatePose, opts...),
	)
	mux.Handle(
		tldetectorv1.DetectorServiceUpdateRouteProcedure,
		connect.NewUnaryHandler(tldetectorv1.DetectorServiceUpdateRouteProcedure, ctx.UpdateRoute, opts...),
	)
	mux.Handle(
		tldetectorv1.DetectorServiceUpdateImageProcedure,
		connect.NewUnaryHandler(tldetectorv1.DetectorServiceUpdateImageProcedure, ctx.UpdateImage, opts...),
	)
	mux.Handle(
		tldetectorv1.DetectorServiceUpdateTrafficLightsProcedure,
		connect.NewUnaryHandler(tldetectorv1.DetectorServiceUpdateTrafficLightsProcedure, ctx.UpdateTrafficLights, opts...),
	)
	mux.Handle(
		tldetectorv1.DetectorServiceGetStatusProcedure,
		connect.NewUnaryHandler(tldetectorv1.DetectorServiceGetStatusProcedure, ctx.GetStatus, opts...),
	)
	mux.Handle(
		tldetectorv1.DetectorServiceWatchStopWaypointsProcedure,
		connect.NewServerStreamHandler(tldetectorv1.DetectorServiceWatchStopWaypointsProcedure, ctx.WatchStopWaypoints, opts...),
	)
}

// toConnectError 将任务错误映射为RPC错误码
func toConnectError(err error) error {
	switch {
	case errors.Is(err, ErrWrongVariant):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, route.ErrNoWaypoints),
		errors.Is(err, ErrEmptyFrame),
		errors.Is(err, ErrInvalidState):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func (ctx *Context) UpdatePose(c context.Context, in *connect.Request[tldetectorv1.UpdatePoseRequest]) (*connect.Response[tldetectorv1.UpdatePoseResponse], error) {
	index, ok := ctx.OnPose(in.Msg.Position.Vec())
	return connect.NewResponse(&tldetectorv1.UpdatePoseResponse{
		Index: index,
		Ok:    ok,
	}), nil
}

func (ctx *Context) UpdateRoute(c context.Context, in *connect.Request[tldetectorv1.UpdateRouteRequest]) (*connect.Response[tldetectorv1.UpdateRouteResponse], error) {
	indices, err := ctx.OnRoute(tldetectorv1.Vecs(in.Msg.Waypoints))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&tldetectorv1.UpdateRouteResponse{
		StopLines: indices,
	}), nil
}

func (ctx *Context) UpdateImage(c context.Context, in *connect.Request[tldetectorv1.UpdateImageRequest]) (*connect.Response[tldetectorv1.UpdateImageResponse], error) {
	err := ctx.OnImage(&entity.Frame{
		Width:    in.Msg.Width,
		Height:   in.Msg.Height,
		Encoding: in.Msg.Encoding,
		Data:     in.Msg.Data,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&tldetectorv1.UpdateImageResponse{}), nil
}

func (ctx *Context) UpdateTrafficLights(c context.Context, in *connect.Request[tldetectorv1.UpdateTrafficLightsRequest]) (*connect.Response[tldetectorv1.UpdateTrafficLightsResponse], error) {
	records := lo.Map(in.Msg.Lights, func(l tldetectorv1.TrafficLight, _ int) entity.LightRecord {
		return entity.LightRecord{
			ID:       l.ID,
			Position: l.Position.Vec(),
			State:    entity.LightState(l.State),
		}
	})
	bound, err := ctx.OnLights(records)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&tldetectorv1.UpdateTrafficLightsResponse{
		Bound: bound,
	}), nil
}

func (ctx *Context) GetStatus(c context.Context, in *connect.Request[tldetectorv1.GetStatusRequest]) (*connect.Response[tldetectorv1.GetStatusResponse], error) {
	return connect.NewResponse(ctx.Status()), nil
}

// WatchStopWaypoints 订阅停车点事件
// 功能：服务端流，连接期间推送每个发布的停车点事件，客户端断开时注销
// 说明：响应头随第一个事件一起发出，客户端的CallServerStream在首个事件发布前不会返回，应在独立goroutine中订阅
func (ctx *Context) WatchStopWaypoints(c context.Context, in *connect.Request[tldetectorv1.WatchStopWaypointsRequest], stream *connect.ServerStream[tldetectorv1.StopWaypoint]) error {
	id, ch := ctx.publisher.subscribe()
	defer ctx.publisher.unsubscribe(id)
	for {
		select {
		case <-c.Done():
			return nil
		case w := <-ch:
			if err := stream.Send(&tldetectorv1.StopWaypoint{
				Index: w.Index,
				State: int32(w.State),
			}); err != nil {
				return err
			}
		}
	}
}
