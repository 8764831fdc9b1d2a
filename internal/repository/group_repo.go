package repository

import (
	"context"

	"github.com/BienNg/eduinsight-sub000/internal/model"
)

// GroupRepository 学员组数据访问接口
type GroupRepository interface {
	Create(ctx context.Context, group *model.Group) error
	GetByID(ctx context.Context, id string) (*model.Group, error)
	List(ctx context.Context) ([]model.Group, error)
	// FindByName 组名精确匹配，不存在时返回 nil, nil
	FindByName(ctx context.Context, name string) (*model.Group, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

type groupRepo struct {
	docs docRepo[model.Group]
}

// NewGroupRepo 创建 GroupRepository 实例
func NewGroupRepo(store RecordStore) GroupRepository {
	return &groupRepo{docs: docRepo[model.Group]{store: store, collection: model.CollectionGroups}}
}

func (r *groupRepo) Create(ctx context.Context, group *model.Group) error {
	id, err := r.docs.create(ctx, group)
	if err != nil {
		return err
	}
	group.ID = id
	return nil
}

func (r *groupRepo) GetByID(ctx context.Context, id string) (*model.Group, error) {
	return r.docs.get(ctx, id)
}

func (r *groupRepo) List(ctx context.Context) ([]model.Group, error) {
	return r.docs.list(ctx)
}

func (r *groupRepo) FindByName(ctx context.Context, name string) (*model.Group, error) {
	groups, err := r.docs.findBy(ctx, "name", name)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}
	return &groups[0], nil
}

func (r *groupRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	return r.docs.update(ctx, id, fields)
}
