package repository

import (
	"context"
	"sort"

	"github.com/BienNg/eduinsight-sub000/internal/model"
)

// SessionRepository 课次数据访问接口
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, id string) (*model.Session, error)
	// ListByCourse 按 sessionOrder 升序返回课程下全部课次
	ListByCourse(ctx context.Context, courseID string) ([]model.Session, error)
	List(ctx context.Context) ([]model.Session, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

type sessionRepo struct {
	docs docRepo[model.Session]
}

// NewSessionRepo 创建 SessionRepository 实例
func NewSessionRepo(store RecordStore) SessionRepository {
	return &sessionRepo{docs: docRepo[model.Session]{store: store, collection: model.CollectionSessions}}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.Session) error {
	id, err := r.docs.create(ctx, session)
	if err != nil {
		return err
	}
	session.ID = id
	return nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	return r.docs.get(ctx, id)
}

func (r *sessionRepo) ListByCourse(ctx context.Context, courseID string) ([]model.Session, error) {
	sessions, err := r.docs.findBy(ctx, "courseId", courseID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].SessionOrder < sessions[j].SessionOrder
	})
	return sessions, nil
}

func (r *sessionRepo) List(ctx context.Context) ([]model.Session, error) {
	return r.docs.list(ctx)
}

func (r *sessionRepo) Update(ctx context.Context, id string, fields map[string]any) error {
	return r.docs.update(ctx, id, fields)
}
