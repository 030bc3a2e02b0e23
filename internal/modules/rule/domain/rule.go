package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/samber/oops"

	"tgrelay/internal/shared/errors"
)

// Rule binds one source conversation to one or more destinations with
// filter, transform and schedule settings.
type Rule struct {
	ID           string     `json:"id"`
	SourceID     int64      `json:"source_id"`
	Destinations []int64    `json:"destinations"`
	Keywords     []string   `json:"keywords,omitempty"`
	RegexPattern string     `json:"regex_pattern,omitempty"`
	IncludeMedia *bool      `json:"include_media,omitempty"`
	ForwardEdits bool       `json:"forward_edits,omitempty"`
	Schedule     *TimeOfDay `json:"schedule,omitempty"`
	Prefix       string     `json:"prefix,omitempty"`
	Suffix       string     `json:"suffix,omitempty"`
	RemoveLinks  bool       `json:"remove_links,omitempty"`
	TimeRange    *TimeRange `json:"time_range,omitempty"`
	AddedAt      time.Time  `json:"added_at"`
	IsActive     bool       `json:"is_active"`
}

// MediaIncluded reports whether original attachments should be carried.
// Absent in stored form means true.
func (r *Rule) MediaIncluded() bool {
	return r.IncludeMedia == nil || *r.IncludeMedia
}

// HasContentFilter reports whether the rule filters on message content at all.
func (r *Rule) HasContentFilter() bool {
	return len(r.Keywords) > 0 || r.RegexPattern != ""
}

// Validate checks the invariants enforced at load time. A rule that fails
// validation never reaches the relay pipeline.
func (r *Rule) Validate() error {
	if r.SourceID == 0 {
		return oops.With("rule_id", r.ID).Wrap(errors.ErrInvalidRule)
	}
	if len(r.Destinations) == 0 {
		return oops.With("rule_id", r.ID).Wrap(errors.ErrNoDestinations)
	}
	if r.RegexPattern != "" {
		if _, err := regexp.Compile(r.RegexPattern); err != nil {
			return oops.With("rule_id", r.ID, "pattern", r.RegexPattern, "context", "invalid regex pattern").Wrap(err)
		}
	}
	if r.TimeRange != nil && r.TimeRange.End.Before(r.TimeRange.Start) {
		return oops.With("rule_id", r.ID, "time_range", r.TimeRange.String()).Wrap(errors.ErrInvalidRule)
	}
	return nil
}

// TimeOfDay is a wall-clock time without a date, stored as "HH:MM".
type TimeOfDay struct {
	Hour   int
	Minute int
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, oops.With("value", s, "context", "invalid time of day").Wrap(err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, oops.With("value", s).Errorf("time of day out of range")
	}
	return t, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns the offset from midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.Minutes() < other.Minutes()
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeRange is an inclusive same-day window; overnight wrap is not supported.
type TimeRange struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

func (r TimeRange) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// Contains reports whether the time-of-day of ts falls within [Start, End].
func (r TimeRange) Contains(ts time.Time) bool {
	m := ts.Hour()*60 + ts.Minute()
	return m >= r.Start.Minutes() && m <= r.End.Minutes()
}
