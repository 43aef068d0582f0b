package tracker

import (
	"time"

	"ai-scorecard/model"
)

// GenerateWindows computes the fixed weekly windows between epoch and now.
// Window k spans [epoch+k*length, epoch+(k+1)*length); windows are
// contiguous with no gaps. Windows ending at or before the availability
// floor are dropped, and a window straddling the floor has its start raised
// to it. When now falls strictly inside the last window, that window's end
// is clipped to now and it is flagged current; every fully elapsed window
// is flagged complete. Pure function of its arguments.
func GenerateWindows(epoch, now time.Time, length time.Duration, floor time.Time) []model.TimeWindow {
	if length <= 0 {
		return nil
	}

	var windows []model.TimeWindow
	for start := epoch; start.Before(now); start = start.Add(length) {
		end := start.Add(length)

		// Data provably does not exist before the floor.
		if !end.After(floor) {
			continue
		}

		w := model.TimeWindow{Start: start, End: end}
		if w.Start.Before(floor) {
			w.Start = floor
		}
		if end.After(now) {
			w.End = now
			w.IsCurrent = true
		} else {
			w.IsComplete = true
		}
		w.Label = windowLabel(w)
		windows = append(windows, w)
	}
	return windows
}

// windowLabel renders the display label. Completed windows show an
// inclusive end date ("Jun 23-29" for the window ending Jun 30 00:00);
// crossing a month or a year widens the format. The current window is
// marked textually too, but IsCurrent stays the authoritative signal.
func windowLabel(w model.TimeWindow) string {
	if w.IsCurrent {
		return w.Start.Format("Jan 2") + "-Current (Live)"
	}

	displayEnd := w.End.AddDate(0, 0, -1)
	switch {
	case w.Start.Year() != displayEnd.Year():
		return w.Start.Format("Jan 2, 2006") + "-" + displayEnd.Format("Jan 2, 2006")
	case w.Start.Month() != displayEnd.Month():
		return w.Start.Format("Jan 2") + "-" + displayEnd.Format("Jan 2")
	default:
		return w.Start.Format("Jan 2") + "-" + displayEnd.Format("2")
	}
}
