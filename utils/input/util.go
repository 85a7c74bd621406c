package input

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "input")

// trafficLightConfig traffic_light_config文件格式
type trafficLightConfig struct {
	CameraInfo *struct {
		ImageWidth  int `yaml:"image_width"`
		ImageHeight int `yaml:"image_height"`
	} `yaml:"camera_info"`
	StopLinePositions [][]float64 `yaml:"stop_line_positions"`
}

// stopLineDoc MongoDB中的停车线文档
type stopLineDoc struct {
	X float64 `bson:"x"`
	Y float64 `bson:"y"`
}
