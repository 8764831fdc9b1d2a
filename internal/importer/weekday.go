package importer

import (
	"math"
	"sort"
	"time"

	"github.com/BienNg/eduinsight-sub000/internal/model"
)

const (
	patternMinRate  = 0.6
	patternMinCount = 2
)

// ISO 顺序，周一为 0
var weekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// SessionDate 已确定日期的课次
type SessionDate struct {
	Title string
	Date  time.Time
}

func isoWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// AnalyzeWeekdays 统计上课星期规律
//
//	规律星期：出现率（次数 / 跨度周数）≥ 60% 且至少出现 2 次
//	异常课次：不在规律星期上的课次（无规律时全部课次都是异常）
//	缺课日：跨度内属于规律星期但没有课次的日期；无规律时不检测
func AnalyzeWeekdays(sessions []SessionDate) *model.WeekdayPattern {
	p := &model.WeekdayPattern{
		Weekdays:     []string{},
		Outliers:     []model.WeekdayOutlier{},
		MissingDates: []string{},
	}
	if len(sessions) == 0 {
		return p
	}

	sorted := make([]SessionDate, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	first := UTCMidnight(sorted[0].Date)
	last := UTCMidnight(sorted[len(sorted)-1].Date)
	days := int(last.Sub(first).Hours() / 24)
	p.SpanWeeks = max(int(math.Ceil(float64(days+1)/7)), 1)

	held := map[string]bool{}
	for _, s := range sorted {
		p.Counts[isoWeekday(s.Date)]++
		held[FormatDate(s.Date)] = true
	}

	var inPattern [7]bool
	for wd, n := range p.Counts {
		if n >= patternMinCount && float64(n)/float64(p.SpanWeeks) >= patternMinRate {
			inPattern[wd] = true
			p.Weekdays = append(p.Weekdays, weekdayNames[wd])
		}
	}
	for _, s := range sorted {
		wd := isoWeekday(s.Date)
		if !inPattern[wd] {
			p.Outliers = append(p.Outliers, model.WeekdayOutlier{
				Title:   s.Title,
				Date:    FormatDate(s.Date),
				Weekday: weekdayNames[wd],
			})
		}
	}

	if len(p.Weekdays) == 0 {
		return p
	}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if inPattern[isoWeekday(d)] && !held[FormatDate(d)] {
			p.MissingDates = append(p.MissingDates, FormatDate(d))
		}
	}
	return p
}
