package input

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/tldetector/utils/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v2"
)

const mongoTimeout = 10 * time.Second

// Input 输入数据
// 功能：存储检测器启动时一次性加载的数据
type Input struct {
	StopLines [][2]float64   // 停车线几何位置
	Camera    *config.Camera // traffic_light_config文件中的相机内参（没有则为nil）
	Source    string         // 停车线数据来源，用于日志
}

// Init 加载数据
// 功能：根据配置加载停车线几何位置
// 参数：ctx-上下文，c-配置对象
// 返回：加载完成的输入数据与错误
// 算法说明：
// 1. 内联列表非空：直接使用
// 2. 配置了traffic_light_config文件：解析stop_line_positions与camera_info
// 3. 配置了MongoDB：从集合中读取所有{x, y}文档
// 4. 都没有：返回空列表，检测器将永远不会报告停车线
func Init(ctx context.Context, c config.Config) (*Input, error) {
	in := c.Input
	switch {
	case len(in.StopLinePositions) > 0:
		log.Infof("load %d stop lines from config", len(in.StopLinePositions))
		return &Input{StopLines: in.StopLinePositions, Source: "config"}, nil
	case in.TrafficLightConfig.File != "":
		res, err := loadTrafficLightConfig(in.TrafficLightConfig.File)
		if err != nil {
			return nil, err
		}
		log.Infof("load %d stop lines from %s", len(res.StopLines), in.TrafficLightConfig.File)
		return res, nil
	case in.Mongo.Enabled():
		log.Infof("start fetching from %s.%s", in.Mongo.GetDb(), in.Mongo.GetColl())
		stopLines, err := loadFromMongo(ctx, in.Mongo)
		if err != nil {
			return nil, err
		}
		log.Infof("finish fetching %d stop lines from %s.%s", len(stopLines), in.Mongo.GetDb(), in.Mongo.GetColl())
		return &Input{StopLines: stopLines, Source: "mongo"}, nil
	default:
		log.Warn("no stop line positions configured, no stop line will ever be reported")
		return &Input{StopLines: [][2]float64{}, Source: "none"}, nil
	}
}

// loadTrafficLightConfig 读取traffic_light_config格式的YAML文件
func loadTrafficLightConfig(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read traffic light config: %w", err)
	}
	return ParseTrafficLightConfig(data)
}

// ParseTrafficLightConfig 解析traffic_light_config格式的YAML
// 说明：该格式中还可能包含其他字段（如light_positions），解析时忽略
func ParseTrafficLightConfig(data []byte) (*Input, error) {
	var tlc trafficLightConfig
	if err := yaml.Unmarshal(data, &tlc); err != nil {
		return nil, fmt.Errorf("parse traffic light config: %w", err)
	}
	for i, p := range tlc.StopLinePositions {
		if len(p) != 2 {
			return nil, fmt.Errorf("stop_line_positions[%d] has %d coordinates, want 2", i, len(p))
		}
	}
	res := &Input{
		StopLines: lo.Map(tlc.StopLinePositions, func(p []float64, _ int) [2]float64 {
			return [2]float64{p[0], p[1]}
		}),
		Source: "traffic_light_config",
	}
	if tlc.CameraInfo != nil {
		res.Camera = &config.Camera{
			ImageWidth:  tlc.CameraInfo.ImageWidth,
			ImageHeight: tlc.CameraInfo.ImageHeight,
		}
	}
	return res, nil
}

// loadFromMongo 从MongoDB集合读取停车线位置
func loadFromMongo(ctx context.Context, p config.MongoPath) ([][2]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(p.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	defer client.Disconnect(context.Background())

	coll := client.Database(p.GetDb()).Collection(p.GetColl())
	cursor, err := coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo find %s.%s: %w", p.GetDb(), p.GetColl(), err)
	}
	var docs []stopLineDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode %s.%s: %w", p.GetDb(), p.GetColl(), err)
	}
	return lo.Map(docs, func(d stopLineDoc, _ int) [2]float64 {
		return [2]float64{d.X, d.Y}
	}), nil
}
