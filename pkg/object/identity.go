package object

import (
	"fmt"
	"strconv"
	"time"
)

// ParseTimezone converts a "+hhmm"/"-hhmm" offset into a fixed location.
func ParseTimezone(tz string) (*time.Location, error) {
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return nil, fmt.Errorf("bad timezone %q", tz)
	}
	hh, err := strconv.Atoi(tz[1:3])
	if err != nil {
		return nil, fmt.Errorf("bad timezone %q: %w", tz, err)
	}
	mm, err := strconv.Atoi(tz[3:5])
	if err != nil || mm >= 60 {
		return nil, fmt.Errorf("bad timezone %q", tz)
	}
	offset := hh*3600 + mm*60
	if tz[0] == '-' {
		offset = -offset
	}
	return time.FixedZone(tz, offset), nil
}

// FormatTimezone renders the offset of t as "+hhmm".
func FormatTimezone(t time.Time) string {
	return t.Format("-0700")
}

// NewIdentity builds an Identity from t, keeping t's zone offset.
func NewIdentity(name, email string, t time.Time) Identity {
	return Identity{
		Name:     name,
		Email:    email,
		When:     t.Unix(),
		Timezone: FormatTimezone(t),
	}
}

// Time returns the instant of id in its recorded zone. An unparsable zone
// falls back to UTC.
func (id Identity) Time() time.Time {
	t := time.Unix(id.When, 0)
	loc, err := ParseTimezone(id.Timezone)
	if err != nil {
		return t.UTC()
	}
	return t.In(loc)
}

// String renders id the way reviewers see it: "Name <email>".
func (id Identity) String() string {
	return fmt.Sprintf("%s <%s>", id.Name, id.Email)
}
