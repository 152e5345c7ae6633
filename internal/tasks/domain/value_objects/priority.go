package value_objects

import (
	"errors"
	"fmt"
	"strings"
)

// Priority represents task urgency. Higher values are more urgent.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

var (
	ErrInvalidPriority = errors.New("invalid priority value")
)

var priorityNames = map[Priority]string{
	PriorityLow:    "LOW",
	PriorityMedium: "MEDIUM",
	PriorityHigh:   "HIGH",
	PriorityUrgent: "URGENT",
}

var priorityValues = map[string]Priority{
	"LOW":    PriorityLow,
	"MEDIUM": PriorityMedium,
	"HIGH":   PriorityHigh,
	"URGENT": PriorityUrgent,
}

// ParsePriority creates a Priority from its name, ignoring case.
func ParsePriority(s string) (Priority, error) {
	p, ok := priorityValues[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	return p, nil
}

// String returns the wire name of the priority.
func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsValid returns true if the priority is a defined level.
func (p Priority) IsValid() bool {
	_, ok := priorityNames[p]
	return ok
}

// Level returns the numeric urgency level (LOW=1 .. URGENT=4).
func (p Priority) Level() int {
	return int(p)
}

// IsHigherThan reports whether p is strictly more urgent than other.
func (p Priority) IsHigherThan(other Priority) bool {
	return p > other
}

// MarshalText encodes the priority by name.
func (p Priority) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPriority, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a priority name.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
