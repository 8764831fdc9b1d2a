package repository

import (
	"context"
	"fmt"

	"github.com/BienNg/eduinsight-sub000/internal/model"
)

// StudentRepository 学员数据访问接口
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	GetByID(ctx context.Context, id string) (*model.Student, error)
	List(ctx context.Context) ([]model.Student, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
}

type studentRepo struct {
	docs docRepo[model.Student]
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(store RecordStore) StudentRepository {
	return &studentRepo{docs: docRepo[model.Student]{store: store, collection: model.CollectionStudents}}
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) error {
	if student.JoinDates == nil {
		student.JoinDates = map[string]string{}
	}
	id, err := r.docs.create(ctx, student)
	if err != nil {
		return err
	}
	student.ID = id
	return nil
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	return r.docs.get(ctx, id)
}

func (r *studentRepo) List(ctx context.Context) ([]model.Student, error) {
	return r.docs.list(ctx)
}

func (r *studentRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	return r.docs.update(ctx, id, fields)
}

func (r *studentRepo) Delete(ctx context.Context, id string) error {
	if err := r.docs.store.Delete(ctx, model.CollectionStudents, id); err != nil {
		return fmt.Errorf("delete student %s: %w", id, err)
	}
	return nil
}
