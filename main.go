package main

import (
	"encoding/base64"
	"flag"
	"os"
	"syscall"

	"git.fiblab.net/general/common/v2/signalutil"
	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/crossroad-sim/output"
	"github.com/tsinghua-fib-lab/crossroad-sim/task"
	"github.com/tsinghua-fib-lab/crossroad-sim/utils/config"
)

var (
	// 配置文件路径，为空时使用默认配置
	configPath = flag.String("config", "", "config file path (empty means built-in defaults)")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")
	// 运行的调度策略
	policy = flag.String("policy", "both", "scheduler to run (both simple parallel)")

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

	log = logrus.WithField("module", "main")
)

// loadConfig 获取配置
// 说明：-config优先于-config-data，均未指定时使用默认配置
func loadConfig() config.Config {
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
		return config.Default()
	}
	c, err := config.Load(file)
	if err != nil {
		log.Panicf("%v", err)
	}
	return c
}

// verify 用台账重放结果核对累加器
func verify(ledger *output.Ledger, r task.Report) {
	if err := ledger.Check(r.Cost); err != nil {
		log.WithField("run", r.RunID).Errorf("ledger check failed: %v", err)
		return
	}
	log.WithField("run", r.RunID).Debugf("ledger check ok: %d cars", len(ledger.Records()))
}

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
	switch *policy {
	case "both", "simple", "parallel":
	default:
		log.Panicf("policy must be one of both, simple, parallel; got %q", *policy)
	}

	c := loadConfig()
	log.Infof("%+v", c)

	ledger := output.NewLedger()
	ctx, err := task.NewContext(c, output.NewLogSink(), task.WithDispatchObserver(ledger))
	if err != nil {
		log.Panicf("%v", err)
	}
	// 中断时输出当前进度后退出
	signalutil.StartExitBySignal([]os.Signal{os.Interrupt, syscall.SIGTERM}, func() {
		log.Warnf("interrupted: cost = %dms, departed %d of %d arrived", ctx.Cost(), ctx.Departed(), ctx.Arrived())
		os.Exit(1)
	})

	var baseline task.Report
	if *policy != "parallel" {
		log.Info("Running Part 1: Simple Scheduler")
		baseline, err = ctx.RunSimple()
		if err != nil {
			log.Panicf("%v", err)
		}
		baseline.Log()
		verify(ledger, baseline)
	}
	if *policy == "simple" {
		return
	}

	// 保留基准代价，重置其余共享状态
	ctx.Reset()
	ledger.Reset()

	log.Info("Running Part 2: Parallel Scheduler")
	r, err := ctx.RunParallel(baseline)
	if err != nil {
		log.Panicf("%v", err)
	}
	r.Log()
	verify(ledger, r)
}
