package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/BienNg/eduinsight-sub000/internal/model"
	"github.com/BienNg/eduinsight-sub000/internal/repository"
	pkgerrors "github.com/BienNg/eduinsight-sub000/pkg/errors"
)

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// NormalizeName 去首尾空白、小写、去变音符号、合并连续空白
//
//	"  José  Müller " → "jose muller"
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// MonthID 月度 ID：YYYY-M（月份不补零）
func MonthID(t time.Time) string {
	return fmt.Sprintf("%d-%d", t.Year(), int(t.Month()))
}

// MonthName 德语月份名 + 年份，如 "März 2024"
func MonthName(t time.Time) string {
	return fmt.Sprintf("%s %d", germanMonths[t.Month()-1], t.Year())
}

// resolver 单次导入内的实体解析器
//
// 学员、教师列表在首次使用时加载一次并随新建记录追加；
// 导入队列串行执行，同一时刻只有一个 resolver 在写共享实体。
type resolver struct {
	repo   *repository.Repository
	logger *zap.Logger

	students       []model.Student
	studentsLoaded bool
	teachers       []model.Teacher
	teachersLoaded bool
}

func newResolver(repo *repository.Repository, logger *zap.Logger) *resolver {
	return &resolver{repo: repo, logger: logger}
}

func (r *resolver) loadStudents(ctx context.Context) ([]model.Student, error) {
	if !r.studentsLoaded {
		list, err := r.repo.Student.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("load students: %w", err)
		}
		r.students = list
		r.studentsLoaded = true
	}
	return r.students, nil
}

func (r *resolver) loadTeachers(ctx context.Context) ([]model.Teacher, error) {
	if !r.teachersLoaded {
		list, err := r.repo.Teacher.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("load teachers: %w", err)
		}
		r.teachers = list
		r.teachersLoaded = true
	}
	return r.teachers, nil
}

// ── 教师 ──

// resolveTeacher 按规范化姓名复用或新建教师，并关联课程
func (r *resolver) resolveTeacher(ctx context.Context, name, courseID string) (string, error) {
	key := NormalizeName(name)
	if key == "" {
		return "", nil
	}
	teachers, err := r.loadTeachers(ctx)
	if err != nil {
		return "", err
	}

	for i := range teachers {
		if NormalizeName(teachers[i].Name) != key {
			continue
		}
		t := &r.teachers[i]
		if ids, changed := model.AddUnique(t.CourseIDs, courseID); changed {
			if err := r.repo.Teacher.Update(ctx, t.ID, map[string]any{"courseIds": ids}); err != nil {
				return "", fmt.Errorf("link teacher %q to course: %w", t.Name, err)
			}
			t.CourseIDs = ids
		}
		return t.ID, nil
	}

	t := model.Teacher{
		Name:      strings.Join(strings.Fields(name), " "),
		Country:   "",
		CourseIDs: []string{courseID},
	}
	if err := r.repo.Teacher.Create(ctx, &t); err != nil {
		return "", fmt.Errorf("create teacher %q: %w", name, err)
	}
	r.logger.Info("新教师", zap.String("name", t.Name), zap.String("id", t.ID))
	r.teachers = append(r.teachers, t)
	return t.ID, nil
}

// ── 月度汇总 ──

// ensureMonth 取得或创建日期所在月份的汇总记录
func (r *resolver) ensureMonth(ctx context.Context, date time.Time) (*model.Month, error) {
	id := MonthID(date)
	m, err := r.repo.Month.GetByID(ctx, id)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pkgerrors.ErrRecordNotFound) {
		return nil, fmt.Errorf("get month %s: %w", id, err)
	}
	m = &model.Month{
		ID:         id,
		Name:       MonthName(date),
		Year:       date.Year(),
		Month:      int(date.Month()),
		CourseIDs:  []string{},
		TeacherIDs: []string{},
	}
	if err := r.repo.Month.Set(ctx, m); err != nil {
		return nil, fmt.Errorf("create month %s: %w", id, err)
	}
	return m, nil
}

// attachSession 课次计入月度汇总：计数 +1，追加课程与教师
func (r *resolver) attachSession(ctx context.Context, date time.Time, courseID, teacherID string) (string, error) {
	m, err := r.ensureMonth(ctx, date)
	if err != nil {
		return "", err
	}
	courseIDs, _ := model.AddUnique(m.CourseIDs, courseID)
	teacherIDs, _ := model.AddUnique(m.TeacherIDs, teacherID)
	fields := map[string]any{
		"sessionCount": m.SessionCount + 1,
		"courseIds":    courseIDs,
		"teacherIds":   teacherIDs,
	}
	if err := r.repo.Month.Update(ctx, m.ID, fields); err != nil {
		return "", fmt.Errorf("update month %s: %w", m.ID, err)
	}
	return m.ID, nil
}

// detachSession 课次移出月度汇总（日期变更时使用），计数不小于 0
func (r *resolver) detachSession(ctx context.Context, monthID string) error {
	if monthID == "" {
		return nil
	}
	m, err := r.repo.Month.GetByID(ctx, monthID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("get month %s: %w", monthID, err)
	}
	count := max(m.SessionCount-1, 0)
	return r.repo.Month.Update(ctx, monthID, map[string]any{"sessionCount": count})
}

// ── 入学日期 ──

// flushJoinDates 写入学员在本课程的最早出勤日期，已有更早或相同日期时不覆盖
func (r *resolver) flushJoinDates(ctx context.Context, courseID string, earliest map[string]time.Time) error {
	for studentID, date := range earliest {
		st, err := r.repo.Student.GetByID(ctx, studentID)
		if err != nil {
			return fmt.Errorf("get student %s: %w", studentID, err)
		}
		if existing, ok := ParseDateString(st.JoinDates[courseID]); ok && !date.Before(existing) {
			continue
		}
		joinDates := st.JoinDates
		if joinDates == nil {
			joinDates = map[string]string{}
		}
		joinDates[courseID] = FormatDate(date)
		if err := r.repo.Student.Update(ctx, studentID, map[string]any{"joinDates": joinDates}); err != nil {
			return fmt.Errorf("update join date of student %s: %w", studentID, err)
		}
	}
	return nil
}
