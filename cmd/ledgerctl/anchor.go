package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"cricketpay/internal/core"
)

// parseAnchor reads a weekend anchor given as YYYY-MM-DD or as English text
// such as "next saturday" or "in 2 weeks". Empty input means the upcoming
// Saturday.
func parseAnchor(input string, now time.Time) (core.Date, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return core.UpcomingSaturday(now), nil
	}
	if d, err := core.ParseDate(input); err == nil {
		return d, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(strings.ToLower(input), now)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse anchor %q: %w", input, err)
	}
	if r == nil {
		return core.Date{}, fmt.Errorf("could not recognize anchor date %q", input)
	}
	return core.DateOf(r.Time.In(now.Location())), nil
}
