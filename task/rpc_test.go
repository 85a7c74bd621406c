package task

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tldetectorv1 "github.com/tsinghua-fib-lab/tldetector/api/tldetector/v1"
	"github.com/tsinghua-fib-lab/tldetector/entity"
	"github.com/tsinghua-fib-lab/tldetector/utils/codec"
)

func newServer(t *testing.T, ctx *Context) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	ctx.Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newClient[Req, Res any](server *httptest.Server, procedure string) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](server.Client(), server.URL+procedure, codec.WithJSON())
}

func TestRPCGroundTruth(t *testing.T) {
	ctx := groundTruthContext(t, [][2]float64{{20, 0}})
	server := newServer(t, ctx)
	c := context.Background()

	routeRes, err := newClient[tldetectorv1.UpdateRouteRequest, tldetectorv1.UpdateRouteResponse](
		server, tldetectorv1.DetectorServiceUpdateRouteProcedure,
	).CallUnary(c, connect.NewRequest(&tldetectorv1.UpdateRouteRequest{
		Waypoints: []tldetectorv1.Position{{X: 0}, {X: 10}, {X: 20}, {X: 30}},
	}))
	require.NoError(t, err)
	assert.Equal(t, []int{2}, routeRes.Msg.StopLines)

	poseRes, err := newClient[tldetectorv1.UpdatePoseRequest, tldetectorv1.UpdatePoseResponse](
		server, tldetectorv1.DetectorServiceUpdatePoseProcedure,
	).CallUnary(c, connect.NewRequest(&tldetectorv1.UpdatePoseRequest{
		Position: tldetectorv1.Position{X: 9, Y: 1},
	}))
	require.NoError(t, err)
	assert.True(t, poseRes.Msg.Ok)
	assert.Equal(t, 1, poseRes.Msg.Index)

	lightsRes, err := newClient[tldetectorv1.UpdateTrafficLightsRequest, tldetectorv1.UpdateTrafficLightsResponse](
		server, tldetectorv1.DetectorServiceUpdateTrafficLightsProcedure,
	).CallUnary(c, connect.NewRequest(&tldetectorv1.UpdateTrafficLightsRequest{
		Lights: []tldetectorv1.TrafficLight{
			{ID: "tl-1", Position: tldetectorv1.Position{X: 21, Y: 4}, State: int32(entity.LightStateRed)},
		},
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, lightsRes.Msg.Bound)

	_, err = newClient[tldetectorv1.UpdateImageRequest, tldetectorv1.UpdateImageResponse](
		server, tldetectorv1.DetectorServiceUpdateImageProcedure,
	).CallUnary(c, connect.NewRequest(&tldetectorv1.UpdateImageRequest{Width: 1, Height: 1, Data: []byte{1}}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	_, err = newClient[tldetectorv1.UpdateTrafficLightsRequest, tldetectorv1.UpdateTrafficLightsResponse](
		server, tldetectorv1.DetectorServiceUpdateTrafficLightsProcedure,
	).CallUnary(c, connect.NewRequest(&tldetectorv1.UpdateTrafficLightsRequest{
		Lights: []tldetectorv1.TrafficLight{{State: 9}},
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	ticks(ctx, 4)
	status, err := newClient[tldetectorv1.GetStatusRequest, tldetectorv1.GetStatusResponse](
		server, tldetectorv1.DetectorServiceGetStatusProcedure,
	).CallUnary(c, connect.NewRequest(&tldetectorv1.GetStatusRequest{}))
	require.NoError(t, err)
	assert.Equal(t, "ground_truth", status.Msg.Source)
	assert.Equal(t, int64(4), status.Msg.Step)
	assert.Equal(t, 4, status.Msg.RouteLength)
	assert.Equal(t, 1, status.Msg.VehicleIndex)
	assert.Equal(t, []int{2}, status.Msg.StopLines)
	assert.Equal(t, int32(entity.LightStateRed), status.Msg.State)
	assert.True(t, status.Msg.HasPublished)
	assert.Equal(t, uint64(1), status.Msg.Published)

	now, err := newClient[tldetectorv1.NowRequest, tldetectorv1.NowResponse](
		server, tldetectorv1.ClockServiceNowProcedure,
	).CallUnary(c, connect.NewRequest(&tldetectorv1.NowRequest{}))
	require.NoError(t, err)
	assert.Equal(t, int64(4), now.Msg.Step)
}

func TestRPCEmptyRoute(t *testing.T) {
	ctx := groundTruthContext(t, [][2]float64{{20, 0}})
	server := newServer(t, ctx)
	_, err := newClient[tldetectorv1.UpdateRouteRequest, tldetectorv1.UpdateRouteResponse](
		server, tldetectorv1.DetectorServiceUpdateRouteProcedure,
	).CallUnary(context.Background(), connect.NewRequest(&tldetectorv1.UpdateRouteRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestRPCWatchStopWaypoints(t *testing.T) {
	ctx := imageContext(t, [][2]float64{{20, 0}}, constant(entity.LightStateGreen))
	server := newServer(t, ctx)
	require.NoError(t, ctx.OnImage(frame()))
	_, err := ctx.OnRoute(line(4, 10))
	require.NoError(t, err)
	ctx.OnPose(line(4, 10)[0])

	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := newClient[tldetectorv1.WatchStopWaypointsRequest, tldetectorv1.StopWaypoint](
		server, tldetectorv1.DetectorServiceWatchStopWaypointsProcedure,
	)
	type received struct {
		msg *tldetectorv1.StopWaypoint
		err error
	}
	// 响应头随首个事件发出，订阅在独立goroutine中建立
	done := make(chan received, 1)
	go func() {
		stream, err := client.CallServerStream(c, connect.NewRequest(&tldetectorv1.WatchStopWaypointsRequest{}))
		if err != nil {
			done <- received{err: err}
			return
		}
		defer stream.Close()
		if !stream.Receive() {
			done <- received{err: stream.Err()}
			return
		}
		done <- received{msg: stream.Msg()}
	}()

	require.Eventually(t, func() bool { return ctx.Publisher().Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []bool{false, false, false, true}, ticks(ctx, 4))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		require.NotNil(t, r.msg)
		assert.Equal(t, tldetectorv1.StopWaypoint{Index: 2, State: int32(entity.LightStateGreen)}, *r.msg)
	case <-c.Done():
		t.Fatal("no stop waypoint received")
	}
}
