package core

import "time"

// WeekendSpan is the fixed distance between consecutive weekend anchors.
const WeekendSpan = 7

// rollAfterDays is how long after the anchor a weekend counts as over:
// Saturday's anchor plus Sunday.
const rollAfterDays = 2

// NextWeekend produces the empty weekend that follows prev.
func NextWeekend(prev Weekend, id string) Weekend {
	return Weekend{
		ID:         id,
		AnchorDate: prev.AnchorDate.AddDays(WeekendSpan),
	}
}

// Advance appends the next weekend and makes it current. There is no check
// that the current weekend is settled and no way back.
func Advance(data AppData) (AppData, error) {
	cur, ok := data.CurrentWeekend()
	if !ok {
		return data, ErrNoCurrentWeekend
	}
	out := data.Clone()
	next := NextWeekend(cur, newID())
	out.Weekends = append(out.Weekends, next)
	out.CurrentWeekendID = next.ID
	return out, nil
}

// WeekendOver reports whether the weekend anchored at anchor has passed at
// now, measured on the wall clock of loc (UTC when nil). A zero anchor is
// never over.
func WeekendOver(anchor Date, now time.Time, loc *time.Location) bool {
	if anchor.IsZero() {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}
	return !DateOf(now.In(loc)).Before(anchor.AddDays(rollAfterDays).Time)
}

// UpcomingSaturday is the anchor for a ledger opened at now: today when it
// is Saturday, otherwise the next Saturday.
func UpcomingSaturday(now time.Time) Date {
	d := DateOf(now)
	return d.AddDays((int(time.Saturday) - int(d.Weekday()) + 7) % 7)
}
