package services

import (
	"time"

	"cricketpay/internal/core"
)

// RollPolicy decides whether the weekend anchored at anchor should be closed.
type RollPolicy interface {
	Due(anchor core.Date, now time.Time) bool
}

// WeekendOverPolicy rolls once the Saturday-Sunday pair has passed, i.e.
// from the Monday after the anchor.
type WeekendOverPolicy struct {
	// Location is the wall clock the weekend is measured in. Nil means UTC.
	Location *time.Location
}

// Due reports whether now is on or after the Monday following anchor.
func (p WeekendOverPolicy) Due(anchor core.Date, now time.Time) bool {
	return core.WeekendOver(anchor, now, p.Location)
}
