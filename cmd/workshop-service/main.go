package main

import (
	"flag"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/AutoCareLink/AutoCareLink/internal/common/config"
	"github.com/AutoCareLink/AutoCareLink/internal/common/db"
	"github.com/AutoCareLink/AutoCareLink/internal/common/logger"
	"github.com/AutoCareLink/AutoCareLink/internal/common/server"
	"github.com/AutoCareLink/AutoCareLink/internal/common/tracing"
	"github.com/AutoCareLink/AutoCareLink/internal/httpapi"
	"github.com/AutoCareLink/AutoCareLink/internal/maintenance"
	"github.com/AutoCareLink/AutoCareLink/internal/scheduling"
	"github.com/AutoCareLink/AutoCareLink/internal/technician"
	"github.com/AutoCareLink/AutoCareLink/internal/vehicle"
)

var (
	configPath = flag.String("config", "configs/workshop-service.json", "配置文件路径")
)

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	tracer, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}
	_ = tracer

	// 初始化数据库
	gormDB, err := db.NewMySQL(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to init mysql: %v", err)
	}
	if err := gormDB.AutoMigrate(
		&vehicle.Vehicle{},
		&vehicle.OdometerReading{},
		&maintenance.Service{},
		&technician.Technician{},
	); err != nil {
		log.Fatalf("failed to migrate mysql schema: %v", err)
	}

	// 组装领域组件
	vehicleRepo := vehicle.NewRepo(gormDB)
	serviceRepo := maintenance.NewRepo(gormDB)
	techRepo := technician.NewRepo(gormDB)
	index := technician.NewIndex(techRepo, serviceRepo)

	registry := vehicle.NewRegistry(vehicleRepo, serviceRepo, cfg.Workshop)
	engine := scheduling.NewEngine(
		vehicleRepo, serviceRepo, techRepo, index,
		scheduling.SystemClock{}, log,
	)
	handlers := httpapi.New(registry, engine, log)

	// 启动统一的 HTTP 服务模板
	if err := server.RunHTTPServer(cfg, log, func(r *gin.Engine) error {
		return handlers.Register(r)
	}); err != nil {
		log.Fatalf("workshop-service exited with error: %v", err)
	}
}
