package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ScheduleMap maps a date to the ordered list of start times offered on
// that date.  Both the set of dates and each date's times keep the order
// in which they were first seen in the source rows; the client relies on
// that order to auto-select the first date and time.
type ScheduleMap struct {
	dates []string
	times map[string][]string
}

// NewScheduleMap returns an empty map.
func NewScheduleMap() *ScheduleMap {
	return &ScheduleMap{times: make(map[string][]string)}
}

// Add appends a time to the given date's sequence, creating the date entry
// on first sight.
func (m *ScheduleMap) Add(date, start string) {
	if m.times == nil {
		m.times = make(map[string][]string)
	}
	if _, ok := m.times[date]; !ok {
		m.dates = append(m.dates, date)
	}
	m.times[date] = append(m.times[date], start)
}

// Dates returns the dates in insertion order.
func (m *ScheduleMap) Dates() []string { return m.dates }

// Times returns the time sequence for a date, or nil when the date is not
// present.
func (m *ScheduleMap) Times(date string) []string { return m.times[date] }

// Contains reports whether the date offers the given start time.
func (m *ScheduleMap) Contains(date, start string) bool {
	for _, t := range m.times[date] {
		if t == start {
			return true
		}
	}
	return false
}

// Len returns the number of dates.
func (m *ScheduleMap) Len() int { return len(m.dates) }

// MarshalJSON encodes the map as a JSON object whose keys appear in
// insertion order.  encoding/json sorts map keys, so the object is built
// by hand.
func (m ScheduleMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, date := range m.dates {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(date)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		times := m.times[date]
		if times == nil {
			times = []string{}
		}
		val, err := json.Marshal(times)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object while preserving key order.  Decoding
// into a plain map would lose the order and with it the "first date"
// semantics, so the object is walked token by token.
func (m *ScheduleMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("schedule: expected JSON object, got %v", tok)
	}
	m.dates = nil
	m.times = make(map[string][]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		date, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("schedule: non-string object key %v", keyTok)
		}
		var times []string
		if err := dec.Decode(&times); err != nil {
			return fmt.Errorf("schedule: times for %q: %w", date, err)
		}
		if _, seen := m.times[date]; !seen {
			m.dates = append(m.dates, date)
		}
		m.times[date] = append(m.times[date], times...)
	}
	// consume closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
