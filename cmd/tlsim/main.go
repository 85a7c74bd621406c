// tlsim 开发用的真值信号灯仿真器
// 车辆沿环路行驶，按固定周期向检测器推送位姿与信号灯真值，并打印检测器发布的停车点事件
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	easy "github.com/t-tomalak/logrus-easy-formatter"
	tldetectorv1 "github.com/tsinghua-fib-lab/tldetector/api/tldetector/v1"
	"github.com/tsinghua-fib-lab/tldetector/entity"
	"github.com/tsinghua-fib-lab/tldetector/sim"
	"github.com/tsinghua-fib-lab/tldetector/utils/codec"
	"gopkg.in/yaml.v2"
)

var (
	server       = flag.String("server", "http://localhost:51102", "detector address")
	scenarioPath = flag.String("scenario", "", "scenario file path (empty means the built-in scenario)")
	rate         = flag.Float64("rate", 10, "publish rate (Hz)")
	steps        = flag.Int("steps", 0, "number of steps to run (0 means forever)")
	printStop    = flag.Bool("print-stop-lines", false, "print the stop_line_positions config of the scenario and exit")
	logLevel     = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error）")

	log = logrus.WithField("module", "tlsim")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		log.Panicf("log.level: %v", err)
	}
	logrus.SetLevel(level)

	scenario := sim.DefaultScenario()
	if *scenarioPath != "" {
		file, err := os.ReadFile(*scenarioPath)
		if err != nil {
			log.Panicf("scenario file load err: %v", err)
		}
		if scenario, err = sim.ParseScenario(file); err != nil {
			log.Panicf("scenario file load err: %v", err)
		}
	}
	if *printStop {
		out, err := yaml.Marshal(map[string]any{"stop_line_positions": scenario.StopLines})
		if err != nil {
			log.Panicf("marshal stop lines: %v", err)
		}
		os.Stdout.Write(out)
		return
	}
	world, err := scenario.Build()
	if err != nil {
		log.Panicf("scenario build err: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	routeClient := newClient[tldetectorv1.UpdateRouteRequest, tldetectorv1.UpdateRouteResponse](tldetectorv1.DetectorServiceUpdateRouteProcedure)
	poseClient := newClient[tldetectorv1.UpdatePoseRequest, tldetectorv1.UpdatePoseResponse](tldetectorv1.DetectorServiceUpdatePoseProcedure)
	lightsClient := newClient[tldetectorv1.UpdateTrafficLightsRequest, tldetectorv1.UpdateTrafficLightsResponse](tldetectorv1.DetectorServiceUpdateTrafficLightsProcedure)
	watchClient := newClient[tldetectorv1.WatchStopWaypointsRequest, tldetectorv1.StopWaypoint](tldetectorv1.DetectorServiceWatchStopWaypointsProcedure)

	res, err := routeClient.CallUnary(ctx, connect.NewRequest(&tldetectorv1.UpdateRouteRequest{
		Waypoints: tldetectorv1.NewPositions(world.Route()),
	}))
	if err != nil {
		log.Panicf("update route: %v", err)
	}
	log.Infof("route: %d waypoints, length %.1f, stop lines at %v", len(world.Route()), world.Length(), res.Msg.StopLines)

	go watch(ctx, watchClient)

	dt := 1 / *rate
	ticker := time.NewTicker(time.Duration(float64(time.Second) * dt))
	defer ticker.Stop()
	for step := 1; *steps == 0 || step <= *steps; step++ {
		select {
		case <-ctx.Done():
			log.Infof("stopped at step %d", step)
			return
		case <-ticker.C:
		}
		pose, records := world.Step(dt)
		poseRes, err := poseClient.CallUnary(ctx, connect.NewRequest(&tldetectorv1.UpdatePoseRequest{
			Position: tldetectorv1.NewPosition(pose),
		}))
		if err != nil {
			log.Warnf("step %d: update pose: %v", step, err)
			continue
		}
		_, err = lightsClient.CallUnary(ctx, connect.NewRequest(&tldetectorv1.UpdateTrafficLightsRequest{
			Lights: lo.Map(records, func(r entity.LightRecord, _ int) tldetectorv1.TrafficLight {
				return tldetectorv1.TrafficLight{
					ID:       r.ID,
					Position: tldetectorv1.NewPosition(r.Position),
					State:    int32(r.State),
				}
			}),
		}))
		if err != nil {
			log.Warnf("step %d: update traffic lights: %v", step, err)
			continue
		}
		log.Debugf("step %d: t=%.1f pose=(%.1f, %.1f) waypoint=%d", step, world.T(), pose.X, pose.Y, poseRes.Msg.Index)
	}
	log.Infof("sim complete")
}

func newClient[Req, Res any](procedure string) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](http.DefaultClient, *server+procedure, codec.WithJSON())
}

// watch 打印检测器发布的停车点事件
func watch(ctx context.Context, client *connect.Client[tldetectorv1.WatchStopWaypointsRequest, tldetectorv1.StopWaypoint]) {
	stream, err := client.CallServerStream(ctx, connect.NewRequest(&tldetectorv1.WatchStopWaypointsRequest{}))
	if err != nil {
		log.Errorf("watch stop waypoints: %v", err)
		return
	}
	defer stream.Close()
	for stream.Receive() {
		w := stream.Msg()
		state := entity.LightState(w.State)
		log.Infof("stop waypoint: %d %v (stop: %v)", w.Index, state, state.IsStop())
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		log.Errorf("watch stop waypoints: %v", err)
	}
}
