package route

import (
	"errors"
	"math"

	"github.com/tsinghua-fib-lab/tldetector/entity"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	ErrNoWaypoints = errors.New("no waypoints in route")
)

var _ entity.IRouteTrack = (*Track)(nil)

// Track 路线跟踪
// 功能：持有当前路线的有序路点，并随位姿更新增量维护车辆所在的路点索引
// 说明：非并发安全，由调用方持锁访问
type Track struct {
	waypoints []r2.Vec // 路点，加载后顺序不变
	index     int      // 车辆路点索引
	valid     bool     // index是否有效
}

// New 创建空的路线跟踪
func New() *Track {
	return &Track{}
}

// Load 加载路线
// 功能：整体替换路线并使车辆索引失效
// 参数：waypoints-有序路点列表
// 说明：复制输入，之后调用方对切片的修改不影响路线
func (t *Track) Load(waypoints []r2.Vec) {
	t.waypoints = append(make([]r2.Vec, 0, len(waypoints)), waypoints...)
	t.index = 0
	t.valid = false
}

// UpdatePose 根据车辆位姿推进路点索引
// 功能：从上次的索引出发向前局部下降，找到离车辆最近的路点
// 参数：pos-车辆位置，stopLines-当前路线的停车线（用于循环路线的复位）
// 返回：新的车辆索引；没有路线时返回false
// 算法说明：
// 1. 索引无效、越界或已超过最后一条停车线时复位到0（支持循环路线）
// 2. 计算到当前索引路点的距离作为当前最小值
// 3. 向前扫描，只要下一路点的距离不大于当前最小值就前进并更新最小值
// 4. 遇到第一个距离增大的路点即停止
// 说明：这是局部下降而非全局最近点搜索，仅在车辆沿路线前进、距离函数在真实最近点附近单峰时成立
func (t *Track) UpdatePose(pos r2.Vec, stopLines entity.IStopLineIndex) (int, bool) {
	if len(t.waypoints) == 0 {
		return 0, false
	}
	if !t.valid || t.index < 0 || t.index >= len(t.waypoints) {
		t.index = 0
	} else if stopLines != nil {
		if last, ok := stopLines.Last(); ok && t.index > last {
			log.Debugf("vehicle index %d passed last stop line %d, reset to 0", t.index, last)
			t.index = 0
		}
	}
	t.valid = true

	current := r2.Norm(r2.Sub(pos, t.waypoints[t.index]))
	for i := t.index + 1; i < len(t.waypoints); i++ {
		dist := r2.Norm(r2.Sub(pos, t.waypoints[i]))
		if dist > current {
			break
		}
		current = dist
		t.index = i
	}
	return t.index, true
}

// Closest 全量搜索离给定点最近的路点
// 功能：遍历所有路点，返回欧氏距离最小的索引（距离相同时取较小索引）
// 参数：point-查询点
// 返回：路点索引；路线为空时返回ErrNoWaypoints
// 说明：O(路点数)，只在路线加载或信号灯绑定时调用，不在每个控制周期调用
func (t *Track) Closest(point r2.Vec) (int, error) {
	if len(t.waypoints) == 0 {
		return -1, ErrNoWaypoints
	}
	closest := -1
	closestDist := math.Inf(1)
	for i, wp := range t.waypoints {
		if dist := r2.Norm(r2.Sub(wp, point)); dist < closestDist {
			closestDist = dist
			closest = i
		}
	}
	return closest, nil
}

func (t *Track) Loaded() bool {
	return len(t.waypoints) > 0
}

func (t *Track) Len() int {
	return len(t.waypoints)
}

// Index 当前车辆索引，尚未收到位姿或没有路线时返回false
func (t *Track) Index() (int, bool) {
	if !t.valid || len(t.waypoints) == 0 {
		return 0, false
	}
	return t.index, true
}

func (t *Track) Waypoint(i int) r2.Vec {
	return t.waypoints[i]
}

func (t *Track) Distance(i, j int) float64 {
	return r2.Norm(r2.Sub(t.waypoints[i], t.waypoints[j]))
}
