package report

import (
	"sort"
	"time"

	"machine-utilization-backend/internal/model"
)

// StatusRow is one machine's line in the status dashboard: configuration,
// the latest observed sample (nil fields when the machine has never logged)
// and the weekly/monthly actual ratios.
type StatusRow struct {
	ID                 int64      `json:"id"`
	MachineName        string     `json:"machineName"`
	GroupName          string     `json:"groupName"`
	WeeklyTarget       float64    `json:"weeklyTarget"`
	MonthlyTarget      float64    `json:"monthlyTarget"`
	RunHour            *float64   `json:"runHour"`
	StopHour           *float64   `json:"stopHour"`
	RunStatus          *int       `json:"runStatus"`
	StopStatus         *int       `json:"stopStatus"`
	ReworkStatus       *int       `json:"reworkStatus"`
	LogTime            *time.Time `json:"logTime"`
	WeeklyActualRatio  float64    `json:"weeklyActualRatio"`
	MonthlyActualRatio float64    `json:"monthlyActualRatio"`
}

// RangeRow is one machine's line in the range report: summed hours over a
// caller-supplied window, per-machine ratios and the group averages.
type RangeRow struct {
	MachineName   string  `json:"machineName"`
	GroupName     string  `json:"groupName"`
	WeeklyTarget  float64 `json:"weeklyTarget"`
	MonthlyTarget float64 `json:"monthlyTarget"`
	RunHour       float64 `json:"runHour"`
	StopHour      float64 `json:"stopHour"`
	WarningHour   float64 `json:"warningHour"`
	ActualRatio1  float64 `json:"actualRatio1"`
	TrueRatio1    float64 `json:"trueRatio1"`
	ActualRatio2  float64 `json:"actualRatio2"`
	TrueRatio2    float64 `json:"trueRatio2"`
	WarningRatio  float64 `json:"warningRatio"`
}

// actualRatio computes 100*run/(run+stop), rounded to two decimals. A zero
// denominator is defined as ratio 0, never NaN.
func actualRatio(run, stop float64) float64 {
	if run+stop <= 0 {
		return 0
	}
	return Round2(100 * run / (run + stop))
}

// trueRatio subtracts warning time from the numerator only.
func trueRatio(run, stop, warning float64) float64 {
	if run+stop <= 0 {
		return 0
	}
	return Round2(100 * (run - warning) / (run + stop))
}

// BuildStatusRows joins settings against the snapshot's window sums and
// latest observed rows. Machines with no logs still appear with nil sample
// fields and zero ratios. Rows come out ordered by group then machine name;
// the sorted distinct group list is returned alongside so consumers can
// partition the table without re-deriving it.
func BuildStatusRows(settings []model.MachineSetting, logs []model.HourLog, latest map[string]model.HourLog, weekStart, monthStart time.Time) ([]StatusRow, []string) {
	type sums struct {
		weeklyRun, weeklyStop   float64
		monthlyRun, monthlyStop float64
	}
	byMachine := make(map[string]*sums, len(settings))
	for _, l := range logs {
		s, ok := byMachine[l.MachineName]
		if !ok {
			s = &sums{}
			byMachine[l.MachineName] = s
		}
		if !l.LogTime.Before(weekStart) {
			s.weeklyRun += l.RunHour
			s.weeklyStop += l.StopHour
		}
		if !l.LogTime.Before(monthStart) {
			s.monthlyRun += l.RunHour
			s.monthlyStop += l.StopHour
		}
	}

	rows := make([]StatusRow, 0, len(settings))
	groupSet := make(map[string]struct{})
	for _, setting := range settings {
		groupSet[setting.GroupName] = struct{}{}

		row := StatusRow{
			ID:            setting.ID,
			MachineName:   setting.MachineName,
			GroupName:     setting.GroupName,
			WeeklyTarget:  setting.WeeklyTarget,
			MonthlyTarget: setting.MonthlyTarget,
		}
		if s, ok := byMachine[setting.MachineName]; ok {
			row.WeeklyActualRatio = actualRatio(s.weeklyRun, s.weeklyStop)
			row.MonthlyActualRatio = actualRatio(s.monthlyRun, s.monthlyStop)
		}
		if last, ok := latest[setting.MachineName]; ok {
			run, stop := last.RunHour, last.StopHour
			runStatus, stopStatus := last.RunStatus, last.StopStatus
			logTime := last.LogTime
			row.RunHour = &run
			row.StopHour = &stop
			row.RunStatus = &runStatus
			row.StopStatus = &stopStatus
			row.ReworkStatus = last.ReworkStatus
			row.LogTime = &logTime
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].GroupName != rows[j].GroupName {
			return rows[i].GroupName < rows[j].GroupName
		}
		return rows[i].MachineName < rows[j].MachineName
	})

	groups := make([]string, 0, len(groupSet))
	for g := range groupSet {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	return rows, groups
}

// BuildRangeRows sums hour logs per machine over the range, computes the
// per-machine ratios and then folds in the group averages and the derived
// warning ratio. Machines with no rows appear with zero totals.
func BuildRangeRows(settings []model.MachineSetting, logs []model.HourLog) []RangeRow {
	type totals struct {
		run, stop, warning float64
	}
	byMachine := make(map[string]*totals, len(settings))
	for _, l := range logs {
		t, ok := byMachine[l.MachineName]
		if !ok {
			t = &totals{}
			byMachine[l.MachineName] = t
		}
		t.run += l.RunHour
		t.stop += l.StopHour
		t.warning += l.WarningHour
	}

	rows := make([]RangeRow, 0, len(settings))
	for _, setting := range settings {
		row := RangeRow{
			MachineName:   setting.MachineName,
			GroupName:     setting.GroupName,
			WeeklyTarget:  setting.WeeklyTarget,
			MonthlyTarget: setting.MonthlyTarget,
		}
		if t, ok := byMachine[setting.MachineName]; ok {
			row.RunHour = t.run
			row.StopHour = t.stop
			row.WarningHour = t.warning
		}
		row.ActualRatio1 = actualRatio(row.RunHour, row.StopHour)
		row.TrueRatio1 = trueRatio(row.RunHour, row.StopHour, row.WarningHour)
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].GroupName != rows[j].GroupName {
			return rows[i].GroupName < rows[j].GroupName
		}
		return rows[i].MachineName < rows[j].MachineName
	})

	// Group averages over the filtered machine set.
	type groupAgg struct {
		actualSum, trueSum float64
		n                  int
	}
	groups := make(map[string]*groupAgg)
	for _, row := range rows {
		g, ok := groups[row.GroupName]
		if !ok {
			g = &groupAgg{}
			groups[row.GroupName] = g
		}
		g.actualSum += row.ActualRatio1
		g.trueSum += row.TrueRatio1
		g.n++
	}
	for i := range rows {
		g := groups[rows[i].GroupName]
		rows[i].ActualRatio2 = Round2(g.actualSum / float64(g.n))
		rows[i].TrueRatio2 = Round2(g.trueSum / float64(g.n))
		rows[i].WarningRatio = Round2(rows[i].ActualRatio2 - rows[i].TrueRatio2)
	}

	return rows
}
