package timeline

import (
	"time"

	"machine-utilization-backend/internal/model"
)

// State labels one reconstructed interval of a machine's activity history.
type State string

const (
	StateRun    State = "RUN"
	StateStop   State = "STOP"
	StateRework State = "REWORK"
	StateIdle   State = "IDLE"
)

// Segment is one labeled, duration-bounded interval in a machine's
// reconstructed timeline. Duration is in hours and always equals End-Start.
type Segment struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	State    State     `json:"state"`
	Duration float64   `json:"duration"`
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// Build converts one machine's hour-log rows, already sorted by
// (logTime, id) ascending, into a non-overlapping segment sequence.
//
// Each row contributes a RUN (or REWORK, when the rework flag is set)
// segment followed by a chained STOP segment. The first contribution is
// anchored at that row's logTime; every later contribution starts where the
// previous segment ended, regardless of the later row's own logTime. The
// rows are squashed into one continuous band, so segment timestamps can
// drift from the rows' logTime values after the first row.
func Build(rows []model.HourLog) []Segment {
	var segments []Segment
	for _, row := range rows {
		start := row.LogTime
		if n := len(segments); n > 0 {
			start = segments[n-1].End
		}

		if row.RunHour > 0 {
			state := StateRun
			if row.ReworkStatus != nil && *row.ReworkStatus == 1 {
				state = StateRework
			}
			end := start.Add(hoursToDuration(row.RunHour))
			segments = append(segments, Segment{Start: start, End: end, State: state, Duration: row.RunHour})
			start = end
		}
		if row.StopHour > 0 {
			end := start.Add(hoursToDuration(row.StopHour))
			segments = append(segments, Segment{Start: start, End: end, State: StateStop, Duration: row.StopHour})
		}
	}
	return segments
}

// Fallback synthesizes a two-segment band for a machine with aggregate
// run/stop totals but no qualifying rows in the window. It exists only to
// avoid rendering an empty bar; it is not a reconstruction of history.
func Fallback(now time.Time, runTotal, stopTotal float64) []Segment {
	var segments []Segment
	start := now
	if runTotal > 0 {
		end := start.Add(hoursToDuration(runTotal))
		segments = append(segments, Segment{Start: start, End: end, State: StateRun, Duration: runTotal})
		start = end
	}
	if stopTotal > 0 {
		end := start.Add(hoursToDuration(stopTotal))
		segments = append(segments, Segment{Start: start, End: end, State: StateStop, Duration: stopTotal})
	}
	return segments
}

// IdleWindow covers [from, to] with a single IDLE segment for machines with
// no activity at all in the window.
func IdleWindow(from, to time.Time) []Segment {
	return []Segment{{
		Start:    from,
		End:      to,
		State:    StateIdle,
		Duration: to.Sub(from).Hours(),
	}}
}
