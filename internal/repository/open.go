package repository

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BienNg/eduinsight-sub000/config"
	"github.com/BienNg/eduinsight-sub000/internal/model"
	"github.com/BienNg/eduinsight-sub000/pkg/database"
)

// OpenStore 按 store.driver 打开记录存储
// bolt: 单文件层级 KV；postgres: 连接后先执行迁移
func OpenStore(cfg *config.Config, logger *zap.Logger) (RecordStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql.DB: %w", err)
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			sqlDB.Close()
			return nil, err
		}
		return NewGormStore(db), nil
	default:
		db, err := database.OpenBolt(cfg.Store.BoltPath, model.Collections, logger)
		if err != nil {
			return nil, err
		}
		return NewBoltStore(db), nil
	}
}
