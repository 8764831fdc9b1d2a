package importer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BienNg/eduinsight-sub000/internal/model"
	"github.com/BienNg/eduinsight-sub000/internal/workbook"
)

// 花名册中的非学员列
var rosterSentinels = []string{"Summe", "Kommentar"}

// RosterEntry 表头中的一个学员列
type RosterEntry struct {
	Column int
	Name   string
}

// rosterStudent 已解析到学员记录的花名册列
type rosterStudent struct {
	Column    int
	Name      string
	StudentID string
}

// ExtractRoster 读取表头行从 offset 起的学员姓名
func ExtractRoster(sheet *workbook.Sheet, headerRow, offset int) []RosterEntry {
	var out []RosterEntry
	for c := offset; c < sheet.Width; c++ {
		name := strings.TrimSpace(sheet.Cell(headerRow, c).String())
		if name == "" || isRosterSentinel(name) {
			continue
		}
		out = append(out, RosterEntry{Column: c, Name: name})
	}
	return out
}

func isRosterSentinel(name string) bool {
	for _, s := range rosterSentinels {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

// StudentBaseName 取 "-" 或 "|" 之前的部分，小写并去空白
//
//	"Anna Nguyen - G2" → "anna nguyen"
func StudentBaseName(name string) string {
	if i := strings.IndexAny(name, "-|"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// MatchStudent 先按姓名精确匹配，再按基础名双向包含匹配，返回下标，未命中为 -1
func MatchStudent(students []model.Student, name string) int {
	name = strings.TrimSpace(name)
	for i := range students {
		if students[i].Name == name {
			return i
		}
	}
	base := StudentBaseName(name)
	if base == "" {
		return -1
	}
	for i := range students {
		existing := StudentBaseName(students[i].Name)
		if existing == "" {
			continue
		}
		if strings.Contains(existing, base) || strings.Contains(base, existing) {
			return i
		}
	}
	return -1
}

// resolveRoster 把花名册姓名解析为学员记录：命中则补充课程关联，否则新建
func (r *resolver) resolveRoster(ctx context.Context, roster []RosterEntry, courseID string) ([]rosterStudent, error) {
	students, err := r.loadStudents(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]rosterStudent, 0, len(roster))
	taken := map[string]int{} // studentID → 首个列号
	for _, entry := range roster {
		idx := MatchStudent(students, entry.Name)
		if idx >= 0 {
			st := &r.students[idx]
			// 同一学员的多列只保留第一列，否则出勤会互相覆盖
			if col, dup := taken[st.ID]; dup {
				r.logger.Warn("花名册中多列对应同一学员，已忽略后出现的列",
					zap.String("name", entry.Name),
					zap.String("student", st.Name),
					zap.Int("column", entry.Column+1),
					zap.Int("kept_column", col+1),
				)
				continue
			}
			taken[st.ID] = entry.Column
			if ids, changed := model.AddUnique(st.CourseIDs, courseID); changed {
				if err := r.repo.Student.Update(ctx, st.ID, map[string]any{"courseIds": ids}); err != nil {
					return nil, fmt.Errorf("link student %q to course: %w", st.Name, err)
				}
				st.CourseIDs = ids
			}
			out = append(out, rosterStudent{Column: entry.Column, Name: entry.Name, StudentID: st.ID})
			continue
		}

		st := model.Student{
			Name:      entry.Name,
			CourseIDs: []string{courseID},
			JoinDates: map[string]string{},
		}
		if err := r.repo.Student.Create(ctx, &st); err != nil {
			return nil, fmt.Errorf("create student %q: %w", entry.Name, err)
		}
		r.logger.Info("新学员", zap.String("name", st.Name), zap.String("id", st.ID))
		r.students = append(r.students, st)
		students = r.students
		taken[st.ID] = entry.Column
		out = append(out, rosterStudent{Column: entry.Column, Name: entry.Name, StudentID: st.ID})
	}
	return out, nil
}
