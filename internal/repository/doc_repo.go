package repository

import (
	"context"
	"fmt"
)

// docRepo 泛型文档访问助手，各实体 Repository 基于它实现
type docRepo[T any] struct {
	store      RecordStore
	collection string
}

func (r docRepo[T]) create(ctx context.Context, v *T) (string, error) {
	id, err := r.store.Create(ctx, r.collection, v)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", r.collection, err)
	}
	return id, nil
}

func (r docRepo[T]) get(ctx context.Context, id string) (*T, error) {
	var out T
	if err := r.store.GetByID(ctx, r.collection, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r docRepo[T]) list(ctx context.Context) ([]T, error) {
	var out []T
	if err := r.store.List(ctx, r.collection, &out); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.collection, err)
	}
	return out, nil
}

func (r docRepo[T]) findBy(ctx context.Context, field string, value any) ([]T, error) {
	var out []T
	if err := r.store.FindBy(ctx, r.collection, field, value, &out); err != nil {
		return nil, fmt.Errorf("query %s by %s: %w", r.collection, field, err)
	}
	return out, nil
}

func (r docRepo[T]) update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if _, err := r.store.Update(ctx, r.collection, id, fields); err != nil {
		return fmt.Errorf("update %s/%s: %w", r.collection, id, err)
	}
	return nil
}
