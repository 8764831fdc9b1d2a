package repository

import (
	"context"

	"github.com/BienNg/eduinsight-sub000/internal/model"
)

// TeacherRepository 教师数据访问接口
type TeacherRepository interface {
	Create(ctx context.Context, teacher *model.Teacher) error
	GetByID(ctx context.Context, id string) (*model.Teacher, error)
	List(ctx context.Context) ([]model.Teacher, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

type teacherRepo struct {
	docs docRepo[model.Teacher]
}

// NewTeacherRepo 创建 TeacherRepository 实例
func NewTeacherRepo(store RecordStore) TeacherRepository {
	return &teacherRepo{docs: docRepo[model.Teacher]{store: store, collection: model.CollectionTeachers}}
}

func (r *teacherRepo) Create(ctx context.Context, teacher *model.Teacher) error {
	id, err := r.docs.create(ctx, teacher)
	if err != nil {
		return err
	}
	teacher.ID = id
	return nil
}

func (r *teacherRepo) GetByID(ctx context.Context, id string) (*model.Teacher, error) {
	return r.docs.get(ctx, id)
}

func (r *teacherRepo) List(ctx context.Context) ([]model.Teacher, error) {
	return r.docs.list(ctx)
}

func (r *teacherRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	return r.docs.update(ctx, id, fields)
}
