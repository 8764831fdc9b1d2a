package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgerrors "github.com/BienNg/eduinsight-sub000/pkg/errors"
)

// recordRow records 表 — 一行一条文档，(collection, id) 为联合主键
type recordRow struct {
	Collection string         `gorm:"type:varchar(32);primaryKey"`
	ID         string         `gorm:"type:varchar(64);primaryKey"`
	Data       datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName 指定表名
func (recordRow) TableName() string { return "records" }

type gormStore struct {
	db *gorm.DB
}

// NewGormStore 基于 PostgreSQL records 表的记录存储
func NewGormStore(db *gorm.DB) RecordStore {
	return &gormStore{db: db}
}

func (s *gormStore) Create(ctx context.Context, collection string, data any) (string, error) {
	id := uuid.NewString()
	raw, err := encodeDoc(id, data)
	if err != nil {
		return "", err
	}
	row := recordRow{Collection: collection, ID: id, Data: datatypes.JSON(raw)}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return id, nil
}

func (s *gormStore) Set(ctx context.Context, collection, id string, data any) error {
	raw, err := encodeDoc(id, data)
	if err != nil {
		return err
	}
	row := recordRow{Collection: collection, ID: id, Data: datatypes.JSON(raw), UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&row).Error
}

func (s *gormStore) GetByID(ctx context.Context, collection, id string, out any) error {
	var row recordRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s/%s", pkgerrors.ErrRecordNotFound, collection, id)
		}
		return err
	}
	return json.Unmarshal(row.Data, out)
}

func (s *gormStore) List(ctx context.Context, collection string, out any) error {
	var rows []recordRow
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return err
	}
	return decodeList(rowData(rows), out)
}

func (s *gormStore) Update(ctx context.Context, collection, id string, partial map[string]any) (map[string]any, error) {
	var merged map[string]any
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row recordRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND id = ?", collection, id).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s/%s", pkgerrors.ErrRecordNotFound, collection, id)
			}
			return err
		}
		doc, raw, err := mergeDoc(row.Data, partial)
		if err != nil {
			return err
		}
		merged = doc
		return tx.Model(&recordRow{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]interface{}{
				"data":       datatypes.JSON(raw),
				"updated_at": gorm.Expr("NOW()"),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

func (s *gormStore) FindBy(ctx context.Context, collection, field string, value any, out any) error {
	var rows []recordRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND data->>? = ?", collection, field, fmt.Sprint(value)).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return err
	}
	return decodeList(rowData(rows), out)
}

func (s *gormStore) Delete(ctx context.Context, collection, id string) error {
	return s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&recordRow{}).Error
}

func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func rowData(rows []recordRow) [][]byte {
	raws := make([][]byte, 0, len(rows))
	for _, r := range rows {
		raws = append(raws, r.Data)
	}
	return raws
}
