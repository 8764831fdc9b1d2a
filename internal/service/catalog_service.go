package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/BienNg/eduinsight-sub000/internal/model"
	"github.com/BienNg/eduinsight-sub000/internal/repository"
)

// CatalogService 教师与月度汇总的只读查询
type CatalogService interface {
	ListTeachers(ctx context.Context) ([]model.Teacher, error)
	ListMonths(ctx context.Context) ([]model.Month, error)
}

type catalogService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(repo *repository.Repository, logger *zap.Logger) CatalogService {
	return &catalogService{repo: repo, logger: logger}
}

func (s *catalogService) ListTeachers(ctx context.Context) ([]model.Teacher, error) {
	teachers, err := s.repo.Teacher.List(ctx)
	if err != nil {
		s.logger.Error("查询教师列表失败", zap.Error(err))
		return nil, err
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].Name < teachers[j].Name })
	return teachers, nil
}

func (s *catalogService) ListMonths(ctx context.Context) ([]model.Month, error) {
	months, err := s.repo.Month.List(ctx)
	if err != nil {
		s.logger.Error("查询月度汇总失败", zap.Error(err))
		return nil, err
	}
	return months, nil
}
