package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/BienNg/eduinsight-sub000/internal/model"
)

// MonthRepository 月度汇总数据访问接口（ID 由调用方给定）
type MonthRepository interface {
	GetByID(ctx context.Context, id string) (*model.Month, error)
	Set(ctx context.Context, month *model.Month) error
	List(ctx context.Context) ([]model.Month, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

type monthRepo struct {
	docs docRepo[model.Month]
}

// NewMonthRepo 创建 MonthRepository 实例
func NewMonthRepo(store RecordStore) MonthRepository {
	return &monthRepo{docs: docRepo[model.Month]{store: store, collection: model.CollectionMonths}}
}

func (r *monthRepo) GetByID(ctx context.Context, id string) (*model.Month, error) {
	return r.docs.get(ctx, id)
}

func (r *monthRepo) Set(ctx context.Context, month *model.Month) error {
	if month.ID == "" {
		return fmt.Errorf("set month: empty id")
	}
	return r.docs.store.Set(ctx, model.CollectionMonths, month.ID, month)
}

func (r *monthRepo) List(ctx context.Context) ([]model.Month, error) {
	months, err := r.docs.list(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(months, func(i, j int) bool {
		if months[i].Year != months[j].Year {
			return months[i].Year < months[j].Year
		}
		return months[i].Month < months[j].Month
	})
	return months, nil
}

func (r *monthRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	return r.docs.update(ctx, id, fields)
}
