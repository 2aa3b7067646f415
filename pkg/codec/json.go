package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"time"
)

// dateLayout keeps millisecond precision and the value's own offset.
const dateLayout = "2006-01-02T15:04:05.000Z07:00"

var isoDate = regexp.MustCompile(`^([0-9]{4})-([0-9]{1,2})-([0-9]{1,2})([T\s]([0-9]{1,2}):([0-9]{1,2})(:([0-9]{1,2})(\.([0-9]+))?)?(Z|([+\-])([0-9]{1,2})(:([0-9]{1,2}))?)?)?$`)

// JSON is the default codec. Dates are written as ISO-8601 strings and every
// string in that shape is read back as a time.Time.
type JSON struct {
	cfg config
}

// NewJSON constructs the JSON codec.
func NewJSON(opts ...Option) *JSON {
	return &JSON{cfg: applyOptions(opts)}
}

// Encode serialises value. Cyclic references are written as
// "[Circular ~.path]" markers.
func (c *JSON) Encode(value any) ([]byte, error) {
	n := &normalizer{dates: func(t time.Time) any {
		if c.cfg.utc {
			t = t.UTC()
		}
		return t.Format(dateLayout)
	}}
	tree, err := n.normalize(reflect.ValueOf(value), nil)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// Decode parses data into a mapping, reviving ISO-8601 strings as dates.
func (c *JSON) Decode(data []byte) (map[string]any, error) {
	var out any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("codec: decode json: %w", err)
	}
	m, ok := revive(out).(map[string]any)
	if !ok {
		return nil, ErrNotMapping
	}
	return m, nil
}

func revive(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for key, child := range typed {
			typed[key] = revive(child)
		}
		return typed
	case []any:
		for i, child := range typed {
			typed[i] = revive(child)
		}
		return typed
	case string:
		if t, ok := ParseDate(typed); ok {
			return t
		}
		return typed
	default:
		return value
	}
}

// ParseDate parses an ISO-8601 date or date-time. Values without an offset
// are read in the local zone.
func ParseDate(text string) (time.Time, bool) {
	m := isoDate.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[5])
	minute, _ := strconv.Atoi(m[6])
	second, _ := strconv.Atoi(m[8])
	if month < 1 || month > 12 || day < 1 || day > daysIn(year, month) || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}
	nanos := 0
	if frac := m[10]; frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		for len(frac) < 9 {
			frac += "0"
		}
		nanos, _ = strconv.Atoi(frac)
	}

	loc := time.Local
	switch {
	case m[11] == "Z":
		loc = time.UTC
	case m[12] != "":
		offH, _ := strconv.Atoi(m[13])
		offM, _ := strconv.Atoi(m[15])
		if offH > 23 || offM > 59 {
			return time.Time{}, false
		}
		offset := offH*3600 + offM*60
		if m[12] == "-" {
			offset = -offset
		}
		loc = time.FixedZone("", offset)
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, nanos, loc), true
}

// daysIn returns the length of month in year, accounting for leap years.
func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
