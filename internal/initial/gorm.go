package initial

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"CaseVault/internal/config"
	"CaseVault/internal/modules/archive/domain/content"
)

var GormDB *gorm.DB

// InitGorm connects to MySQL and migrates the content table. Commands that
// never touch the relational store skip it.
func InitGorm() error {
	conf := config.GetConfig()
	dbName := conf.MysqlConfig.DatabaseName
	if dbName == "" {
		dbName = conf.MainConfig.AppName
	}
	if dbName == "" {
		dbName = "casevault"
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		conf.MysqlConfig.User, conf.MysqlConfig.Password,
		conf.MysqlConfig.Host, conf.MysqlConfig.Port, dbName)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return fmt.Errorf("open mysql: %w", err)
	}
	if err := db.AutoMigrate(&content.Record{}); err != nil {
		return fmt.Errorf("migrate archive_content: %w", err)
	}

	GormDB = db
	return nil
}
