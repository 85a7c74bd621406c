package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	easy "github.com/t-tomalak/logrus-easy-formatter"
	"github.com/tsinghua-fib-lab/tldetector/entity"
	"github.com/tsinghua-fib-lab/tldetector/entity/light"
	"github.com/tsinghua-fib-lab/tldetector/task"
	"github.com/tsinghua-fib-lab/tldetector/utils/config"
	"github.com/tsinghua-fib-lab/tldetector/utils/input"
)

var (
	// 本程序监听的RPC地址
	listenAddr = flag.String("listen", ":51102", "RPC listening address")
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "tldetector")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	// 获取配置
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	} else {
		log.Panic("config file or config data must be specified")
	}
	c, err := config.Parse(file)
	if err != nil {
		log.Panicf("config file load err: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 加载停车线，traffic_light_config中的camera_info在未配置camera时生效
	in, err := input.Init(ctx, c)
	if err != nil {
		log.Panicf("input load err: %v", err)
	}
	if in.Camera != nil && c.Camera.ImageWidth == 0 && c.Camera.ImageHeight == 0 {
		c.Camera = *in.Camera
	}
	rc, err := config.NewRuntimeConfig(c, in.StopLines)
	if err != nil {
		log.Panicf("config invalid: %v", err)
	}
	log.Infof("%+v", rc.All)

	var classifier entity.IClassifier
	if !rc.All.Detector.GroundTruth {
		classifier = light.NewRemoteClassifier(http.DefaultClient, rc.All.Classifier)
	}
	t, err := task.NewContext(rc, classifier)
	if err != nil {
		log.Panicf("task init err: %v", err)
	}

	mux := http.NewServeMux()
	t.Register(mux)
	server := &http.Server{
		Addr:              *listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		log.Infof("listening on %s", *listenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to serve: %v", err)
		}
	}()

	t.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server shutdown: %v", err)
	}
	log.Infof("detector complete")
}
