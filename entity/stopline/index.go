package stopline

import (
	"fmt"
	"slices"
	"sort"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tldetector/entity"
	"gonum.org/v1/gonum/spatial/r2"
)

var _ entity.IStopLineIndex = (*Index)(nil)

// Index 停车线索引
// 功能：每次加载路线时由停车线几何位置计算一次，保存升序、去重后的停车线路点索引
type Index struct {
	indices []int
}

// New 创建空的停车线索引
func New() *Index {
	return &Index{indices: make([]int, 0)}
}

// Build 将停车线几何位置绑定到路点
// 功能：为每个停车线位置找到最近的路点，排序去重后保存
// 参数：track-当前路线，positions-配置的停车线位置
// 返回：停车线位置非空而路线为空时返回错误（几何不可解析），此时索引被清空
func (x *Index) Build(track entity.IRouteTrack, positions []r2.Vec) error {
	x.indices = x.indices[:0]
	if len(positions) == 0 {
		return nil
	}
	indices := make([]int, 0, len(positions))
	for i, pos := range positions {
		index, err := track.Closest(pos)
		if err != nil {
			x.indices = x.indices[:0]
			return fmt.Errorf("bind stop line %d at (%.2f, %.2f): %w", i, pos.X, pos.Y, err)
		}
		indices = append(indices, index)
	}
	indices = lo.Uniq(indices)
	slices.Sort(indices)
	if len(indices) < len(positions) {
		log.Debugf("%d stop lines bound to %d distinct waypoints", len(positions), len(indices))
	}
	x.indices = indices
	return nil
}

// NextAfter 查询车辆前方的下一条停车线
// 功能：二分查找严格大于index的最小停车线索引
// 返回：停车线索引；车辆已越过本路线所有停车线时返回false
func (x *Index) NextAfter(index int) (int, bool) {
	i := sort.SearchInts(x.indices, index+1)
	if i == len(x.indices) {
		return 0, false
	}
	return x.indices[i], true
}

func (x *Index) Last() (int, bool) {
	if len(x.indices) == 0 {
		return 0, false
	}
	return x.indices[len(x.indices)-1], true
}

// Indices 全部停车线索引的副本
func (x *Index) Indices() []int {
	return slices.Clone(x.indices)
}

func (x *Index) Len() int {
	return len(x.indices)
}
