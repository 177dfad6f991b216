package models

import (
	"log"
	"time"

	"github.com/snigdhareddy482/fibo-continuity-director/config"

	_ "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var GormDB *gorm.DB

func InitDB() {
	if config.AppConfig == nil {
		log.Fatal("config.AppConfig is nil, call config.InitConfig first")
	}
	dsn := config.AppConfig.MySQL.DSN

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("连接数据库失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("获取底层连接失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	GormDB = db
	log.Println("数据库连接成功 (GORM)")

	// 任务表自动迁移；项目快照不进 DB，落在 storage.output_dir 目录
	if err := GormDB.AutoMigrate(&Task{}); err != nil {
		log.Printf("任务表迁移失败: %v", err)
	}
}

func CreateTask(db *gorm.DB, t *Task) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	return db.Create(t).Error
}

// ListTasksByProject 项目任务列表（按创建时间倒序）
func ListTasksByProject(db *gorm.DB, projectID string) ([]Task, error) {
	var tasks []Task
	err := db.Where("project_id = ?", projectID).Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}
