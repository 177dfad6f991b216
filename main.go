package main

import (
	"fmt"

	"github.com/snigdhareddy482/fibo-continuity-director/config"
	"github.com/snigdhareddy482/fibo-continuity-director/models"
	"github.com/snigdhareddy482/fibo-continuity-director/routers"
	"github.com/snigdhareddy482/fibo-continuity-director/service"
)

func main() {
	config.InitConfig()
	fmt.Println("Server starting on port", config.AppConfig.Server.Port)
	models.InitDB()
	fmt.Println("Database initialized")

	service.InitQueue()
	fmt.Println("Queue initialized")

	service.InitMinIO()
	fmt.Println("MinIO initialized")

	// 序列逐镜生成且分镜之间有顺序依赖，保持单并发
	processor := service.NewProcessor(models.GormDB)
	processor.StartProcessor(1)

	r := routers.InitRouter()
	r.Run(config.AppConfig.Server.Port)
}
