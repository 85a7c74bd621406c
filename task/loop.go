package task

import (
	"context"

	"github.com/tsinghua-fib-lab/tldetector/entity"
)

// Tick 控制循环的一步
// 功能：求出前方停车线与原始信号灯状态，经去抖后决定是否发布停车点事件
// 返回：发布的事件与是否发布
// 算法说明：
// 1. 推进时钟
// 2. 持锁读取车辆索引与前方最近停车线，没有则跳过本步
// 3. 持锁取得信号灯采样函数，释放锁后求值（分类器调用在锁外进行）
// 4. 重新持锁推进去抖器；采样期间路线被替换时丢弃本步结果，停车线索引已失效
// 5. 释放锁后发布事件
func (ctx *Context) Tick(c context.Context) (entity.StopWaypoint, bool) {
	step := ctx.clock.Tick()

	ctx.mu.Lock()
	vehicle, ok := ctx.track.Index()
	var stopLine int
	if ok {
		stopLine, ok = ctx.stopLines.NextAfter(vehicle)
	}
	if !ok {
		ctx.skipped++
		ctx.mu.Unlock()
		log.Tracef("step %d: no stop line ahead, skip", step)
		return entity.StopWaypoint{}, false
	}
	sample := ctx.source.Sample(ctx.track)
	gen := ctx.routeGen
	ctx.mu.Unlock()

	raw := sample(c)

	ctx.mu.Lock()
	if gen != ctx.routeGen {
		ctx.mu.Unlock()
		log.Debugf("step %d: route replaced while sampling, drop stop line %d", step, stopLine)
		return entity.StopWaypoint{}, false
	}
	w, publish := ctx.debouncer.Step(stopLine, true, raw)
	ctx.mu.Unlock()

	log.Debugf("step %d: vehicle %d, stop line %d, raw state %v", step, vehicle, stopLine, raw)
	if publish {
		log.Infof("step %d: publish %v", step, w)
		ctx.publisher.Publish(w)
	}
	return w, publish
}

// Run 运行控制循环
// 功能：按控制周期调用Tick，直到c被取消
// 说明：每隔heartbeat步输出一次心跳日志
func (ctx *Context) Run(c context.Context) {
	ticker := ctx.clock.NewTicker()
	defer ticker.Stop()
	heartbeat := ctx.runtimeConfig.C.Heartbeat
	log.Infof("control loop started, dt=%v", ctx.clock.DT)
	for {
		select {
		case <-c.Done():
			log.Infof("control loop stopped at step %d", ctx.clock.Step())
			return
		case <-ticker.C:
			ctx.Tick(c)
			if step := ctx.clock.Step(); heartbeat > 0 && step%heartbeat == 0 {
				s := ctx.Status()
				log.Infof(
					"STEP: %d(%v) vehicle: %d/%d state: %v x%d published: %d",
					step, ctx.clock,
					s.VehicleIndex, s.RouteLength,
					entity.LightState(s.State), s.StateCount, s.Published,
				)
			}
		}
	}
}
