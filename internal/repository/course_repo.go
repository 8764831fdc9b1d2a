package repository

import (
	"context"

	"github.com/BienNg/eduinsight-sub000/internal/model"
)

// CourseRepository 课程数据访问接口
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id string) (*model.Course, error)
	List(ctx context.Context) ([]model.Course, error)
	ListByGroup(ctx context.Context, groupID string) ([]model.Course, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

type courseRepo struct {
	docs docRepo[model.Course]
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(store RecordStore) CourseRepository {
	return &courseRepo{docs: docRepo[model.Course]{store: store, collection: model.CollectionCourses}}
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	id, err := r.docs.create(ctx, course)
	if err != nil {
		return err
	}
	course.ID = id
	return nil
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	return r.docs.get(ctx, id)
}

func (r *courseRepo) List(ctx context.Context) ([]model.Course, error) {
	return r.docs.list(ctx)
}

func (r *courseRepo) ListByGroup(ctx context.Context, groupID string) ([]model.Course, error) {
	return r.docs.findBy(ctx, "groupId", groupID)
}

func (r *courseRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	return r.docs.update(ctx, id, fields)
}
