package match

import (
	"sort"
	"time"
)

// Merge overlays the supplied top-level fields of overlay onto base.
// Fields the overlay leaves out keep the base value; a supplied field
// replaces the base field as a whole.
func Merge(base, overlay Record) Record {
	out := base
	if overlay.FixtureID > 0 {
		out.FixtureID = overlay.FixtureID
	}
	if overlay.League != nil {
		out.League = overlay.League
	}
	if overlay.Home != nil {
		out.Home = overlay.Home
	}
	if overlay.Away != nil {
		out.Away = overlay.Away
	}
	if overlay.Score != nil {
		out.Score = overlay.Score
	}
	if !overlay.Time.empty() {
		out.Time = overlay.Time
	}
	if overlay.KickoffUTC != "" {
		out.KickoffUTC = overlay.KickoffUTC
	}
	if overlay.Date != "" {
		out.Date = overlay.Date
	}
	if overlay.Odds != nil {
		out.Odds = overlay.Odds
	}
	if overlay.Prob != nil {
		out.Prob = overlay.Prob
	}
	return out
}

// Reconcile combines the bulletin and live collections into one ordered list.
// Bulletin records form the base, live records are merged over them by fixture id.
func Reconcile(live, bulletin []Record) []Record {
	byID := make(map[int64]Record, len(bulletin)+len(live))
	for _, item := range bulletin {
		byID[item.FixtureID] = item
	}
	for _, item := range live {
		if existing, ok := byID[item.FixtureID]; ok {
			byID[item.FixtureID] = Merge(existing, item)
			continue
		}
		byID[item.FixtureID] = item
	}

	out := make([]Record, 0, len(byID))
	for _, item := range byID {
		out = append(out, item)
	}
	Sort(out)
	return out
}

func Sort(items []Record) {
	sort.SliceStable(items, func(i, j int) bool { return Less(items[i], items[j]) })
}

// Less orders live records first, then by kickoff ascending with unknown
// kickoffs last, then by fixture id.
func Less(a, b Record) bool {
	aLive, bLive := a.IsLive(), b.IsLive()
	if aLive != bLive {
		return aLive
	}

	aKickoff, aOK := a.Kickoff()
	bKickoff, bOK := b.Kickoff()
	switch {
	case aOK && !bOK:
		return true
	case !aOK && bOK:
		return false
	case aOK && bOK && !aKickoff.Equal(bKickoff):
		return aKickoff.Before(bKickoff)
	}

	return a.FixtureID < b.FixtureID
}

// CountLive returns the number of live records in items.
func CountLive(items []Record) int {
	count := 0
	for _, item := range items {
		if item.IsLive() {
			count++
		}
	}
	return count
}

const dateLayout = "2006-01-02"

// DateRange is an inclusive UTC calendar range in YYYY-MM-DD form.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RangeAround builds the bulletin window around now.
func RangeAround(now time.Time, daysBack, daysAhead int) DateRange {
	day := now.UTC()
	if daysBack < 0 {
		daysBack = 0
	}
	if daysAhead < 0 {
		daysAhead = 0
	}
	return DateRange{
		From: day.AddDate(0, 0, -daysBack).Format(dateLayout),
		To:   day.AddDate(0, 0, daysAhead).Format(dateLayout),
	}
}

func (r DateRange) Valid() bool {
	from, err := time.Parse(dateLayout, r.From)
	if err != nil {
		return false
	}
	to, err := time.Parse(dateLayout, r.To)
	if err != nil {
		return false
	}
	return !to.Before(from)
}
