package match

import (
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
)

// Record represents one fixture as shown on the live-scores board.
// Pointer fields and empty strings mean "not supplied by the source".
type Record struct {
	FixtureID  int64   `json:"fixtureId"`
	League     *League `json:"league,omitempty"`
	Home       *Team   `json:"home,omitempty"`
	Away       *Team   `json:"away,omitempty"`
	Score      *Score  `json:"score,omitempty"`
	Time       *Clock  `json:"time,omitempty"`
	KickoffUTC string  `json:"kickoffUtc,omitempty"`
	Date       string  `json:"date,omitempty"`
	Odds       *Odds   `json:"odds,omitempty"`
	Prob       *Prob   `json:"prob,omitempty"`
}

type League struct {
	Name    string   `json:"name"`
	LogoURL string   `json:"logoUrl,omitempty"`
	Country *Country `json:"country,omitempty"`
}

type Country struct {
	Name    string `json:"name,omitempty"`
	FlagURL string `json:"flagUrl,omitempty"`
}

type Team struct {
	Name    string `json:"name"`
	LogoURL string `json:"logoUrl,omitempty"`
}

type Score struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

type Odds struct {
	H         *float64 `json:"H"`
	D         *float64 `json:"D"`
	A         *float64 `json:"A"`
	Bookmaker string   `json:"bookmaker,omitempty"`
}

type Prob struct {
	H *float64 `json:"H"`
	D *float64 `json:"D"`
	A *float64 `json:"A"`
}

// Clock is the match time union: either a live minute or a status label.
type Clock struct {
	minute *int
	status string
}

func LiveMinute(minute int) *Clock {
	if minute < 0 {
		return nil
	}
	return &Clock{minute: &minute}
}

func StatusLabel(status string) *Clock {
	return &Clock{status: status}
}

// Minute reports the live minute; ok is false for status labels.
func (c *Clock) Minute() (int, bool) {
	if c == nil || c.minute == nil {
		return 0, false
	}
	return *c.minute, true
}

func (c *Clock) Status() string {
	if c == nil {
		return ""
	}
	return c.status
}

func (c *Clock) String() string {
	if minute, ok := c.Minute(); ok {
		return strconv.Itoa(minute) + "'"
	}
	return c.Status()
}

func (c Clock) MarshalJSON() ([]byte, error) {
	if c.minute != nil {
		return []byte(strconv.Itoa(*c.minute)), nil
	}
	return sonic.Marshal(c.status)
}

// UnmarshalJSON accepts a JSON number (live minute) or a JSON string (status).
// Anything else leaves the clock empty rather than failing the record.
func (c *Clock) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	*c = Clock{}
	if raw == "" || raw == "null" {
		return nil
	}

	if raw[0] == '"' {
		var status string
		if err := sonic.Unmarshal(data, &status); err != nil {
			return nil
		}
		c.status = strings.TrimSpace(status)
		return nil
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return nil
	}
	minute := int(value)
	c.minute = &minute
	return nil
}

func (c *Clock) empty() bool {
	return c == nil || (c.minute == nil && c.status == "")
}

// IsLive is the single source of truth for live classification.
func (r Record) IsLive() bool {
	_, ok := r.Time.Minute()
	return ok
}

var kickoffLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// Kickoff parses KickoffUTC; zone-less values are read as UTC.
func (r Record) Kickoff() (time.Time, bool) {
	return ParseKickoff(r.KickoffUTC)
}

func ParseKickoff(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range kickoffLayouts {
		parsed, err := time.ParseInLocation(layout, value, time.UTC)
		if err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// Normalize clears values that violate record invariants.
func (r Record) Normalize() Record {
	if r.Score != nil {
		score := *r.Score
		if score.Home != nil && *score.Home < 0 {
			score.Home = nil
		}
		if score.Away != nil && *score.Away < 0 {
			score.Away = nil
		}
		r.Score = &score
	}
	if r.Time.empty() {
		r.Time = nil
	}
	r.KickoffUTC = strings.TrimSpace(r.KickoffUTC)
	r.Date = strings.TrimSpace(r.Date)
	return r
}
