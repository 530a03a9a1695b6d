package metrics

import "time"

// weekWindow is one ISO week of the fire analysis range, expressed as the
// day-of-year interval burned-area pixels are matched against.
type weekWindow struct {
	Year    int
	ISOWeek int
	// StartDay and EndDay are day-of-year values: the Saturday of the
	// window's week and the Sunday closing the following week. Callers
	// match [StartDay, EndDay-1) against the raster's day-of-year band.
	StartDay int
	EndDay   int
}

// weekWindows generates one window per whole week between start and end.
// The final partial week is dropped.
func weekWindows(start, end time.Time) []weekWindow {
	var out []weekWindow
	for cur := start; cur.Before(end.AddDate(0, 0, -7)); cur = cur.AddDate(0, 0, 7) {
		next := cur.AddDate(0, 0, 7)
		sy, sw := cur.ISOWeek()
		ey, ew := next.ISOWeek()
		out = append(out, weekWindow{
			Year:     sy,
			ISOWeek:  sw,
			StartDay: dayOfYearForWeek(sy, sw, 5),
			EndDay:   dayOfYearForWeek(ey, ew, 6),
		})
	}
	return out
}

// dayOfYearForWeek resolves (year, week, weekday) to a day of year using
// Monday-started week counting: week 1 begins on the year's first Monday
// and week 0 covers any days before it. Weekday is Monday-based, 0..6.
// Near year boundaries the result can fall outside [1, 366], which callers
// treat as a wrapped window.
func dayOfYearForWeek(year, week, weekday int) int {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	first := (int(jan1.Weekday()) + 6) % 7 // Monday=0
	week0 := (7 - first) % 7
	if week == 0 {
		return 1 + weekday - first
	}
	return 1 + week0 + 7*(week-1) + weekday
}
