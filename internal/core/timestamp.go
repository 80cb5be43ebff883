package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Display sentinels. Absent and unparseable dates are kept distinct.
const (
	DisplayAbsent  = "N/A"
	DisplayInvalid = "Invalid Date"

	// DisplayLayout is MM/DD/YYYY, HH:mm on a 24-hour clock.
	DisplayLayout = "01/02/2006, 15:04"
)

// maxDateMillis bounds the representable range, ±100,000,000 days around the epoch.
const maxDateMillis = 8.64e15

var errInvalidTimestamp = errors.New("invalid timestamp")

// TimestampKind tags which representation a Timestamp was decoded from.
type TimestampKind int

const (
	KindAbsent TimestampKind = iota
	KindFirestore
	KindTime
	KindEpochMillis
	KindString
	KindUnknown
)

func (k TimestampKind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindFirestore:
		return "firestore"
	case KindTime:
		return "time"
	case KindEpochMillis:
		return "epoch_millis"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// DateConverter is implemented by values that can produce their own instant,
// such as SDK timestamp wrappers.
type DateConverter interface {
	ToDate() time.Time
}

// Timestamp is a date value that may arrive in several serialized shapes.
// It is classified exactly once, by ParseTimestamp or UnmarshalJSON; the rest of
// the package switches on Kind and never inspects the original shape again.
type Timestamp struct {
	Kind TimestampKind

	// KindFirestore
	Seconds float64
	Nanos   float64

	// KindEpochMillis
	Millis float64

	// KindString
	Text string

	// KindTime
	At        time.Time
	converter DateConverter

	raw json.RawMessage
}

// ParseTimestamp classifies v into a Timestamp. Shapes are tested in a fixed
// precedence order and the first match wins:
//
//  1. falsy values (nil, false, 0, NaN, "") are absent
//  2. objects: {seconds, nanoseconds}, then ToDate(), then time.Time, then {_seconds}
//     (whole seconds only)
//  3. numbers are epoch milliseconds
//  4. strings are ISO dates, with numeric strings as an epoch fallback
//
// Anything else is KindUnknown.
func ParseTimestamp(v any) Timestamp {
	switch x := v.(type) {
	case nil:
		return Timestamp{}
	case Timestamp:
		return x
	case *Timestamp:
		if x == nil {
			return Timestamp{}
		}
		return *x
	case bool:
		if !x {
			return Timestamp{}
		}
		return Timestamp{Kind: KindUnknown}
	case string:
		if x == "" {
			return Timestamp{}
		}
		return Timestamp{Kind: KindString, Text: x}
	case json.RawMessage:
		return parseRawTimestamp(x)
	case []byte:
		return parseRawTimestamp(x)
	case map[string]any:
		return parseTimestampObject(x)
	case time.Time:
		return Timestamp{Kind: KindTime, At: x}
	case *time.Time:
		if x == nil {
			return Timestamp{}
		}
		return Timestamp{Kind: KindTime, At: *x}
	case DateConverter:
		return Timestamp{Kind: KindTime, converter: x}
	}

	if f, ok := toFloat(v); ok {
		if f == 0 || math.IsNaN(f) {
			return Timestamp{}
		}
		return Timestamp{Kind: KindEpochMillis, Millis: f}
	}
	return Timestamp{Kind: KindUnknown}
}

func parseTimestampObject(m map[string]any) Timestamp {
	seconds, hasSeconds := m["seconds"]
	nanos, hasNanos := m["nanoseconds"]
	if hasSeconds && hasNanos {
		return Timestamp{Kind: KindFirestore, Seconds: floatOrNaN(seconds), Nanos: floatOrNaN(nanos)}
	}
	// serialized wrappers are read at whole-second precision; _nanoseconds is ignored
	if s, ok := m["_seconds"]; ok {
		return Timestamp{Kind: KindFirestore, Seconds: floatOrNaN(s)}
	}
	return Timestamp{Kind: KindUnknown}
}

func parseRawTimestamp(data []byte) Timestamp {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Timestamp{Kind: KindUnknown, raw: append(json.RawMessage(nil), data...)}
	}
	ts := ParseTimestamp(v)
	ts.raw = append(json.RawMessage(nil), data...)
	return ts
}

// UnmarshalJSON classifies the JSON value and keeps the original bytes.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = parseRawTimestamp(data)
	return nil
}

// MarshalJSON re-emits the value in the shape it was received in.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if len(t.raw) > 0 {
		return t.raw, nil
	}
	switch t.Kind {
	case KindFirestore:
		return json.Marshal(map[string]float64{"seconds": t.Seconds, "nanoseconds": t.Nanos})
	case KindTime:
		at, err := t.resolve(time.Local)
		if err != nil {
			return []byte("null"), nil
		}
		return json.Marshal(at.Format(time.RFC3339Nano))
	case KindEpochMillis:
		if math.IsNaN(t.Millis) || math.IsInf(t.Millis, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(t.Millis)
	case KindString:
		return json.Marshal(t.Text)
	default:
		return []byte("null"), nil
	}
}

// IsAbsent reports whether no date was supplied at all.
func (t Timestamp) IsAbsent() bool {
	return t.Kind == KindAbsent
}

// String returns a short description of the raw value, used in log fields.
func (t Timestamp) String() string {
	if len(t.raw) > 0 {
		return string(t.raw)
	}
	switch t.Kind {
	case KindFirestore:
		return fmt.Sprintf("{seconds:%v nanoseconds:%v}", t.Seconds, t.Nanos)
	case KindTime:
		if t.converter != nil {
			return fmt.Sprintf("%T", t.converter)
		}
		return t.At.Format(time.RFC3339Nano)
	case KindEpochMillis:
		return strconv.FormatFloat(t.Millis, 'f', -1, 64)
	case KindString:
		return strconv.Quote(t.Text)
	default:
		return t.Kind.String()
	}
}

// Time resolves the instant, interpreting zone-less strings in the local zone.
// The boolean is false when the value is absent or cannot be interpreted.
func (t Timestamp) Time() (time.Time, bool) {
	at, err := t.resolve(time.Local)
	return at, err == nil
}

// resolve never panics: a panicking DateConverter is reported as an error.
func (t Timestamp) resolve(loc *time.Location) (at time.Time, err error) {
	defer func() {
		if rv := recover(); rv != nil {
			at, err = time.Time{}, fmt.Errorf("resolve %s timestamp: %v", t.Kind, rv)
		}
	}()

	switch t.Kind {
	case KindFirestore:
		return fromMillis(t.Seconds*1000 + t.Nanos/1e6)
	case KindTime:
		if t.converter != nil {
			return t.converter.ToDate(), nil
		}
		return t.At, nil
	case KindEpochMillis:
		return fromMillis(t.Millis)
	case KindString:
		return parseDateString(t.Text, loc)
	default:
		return time.Time{}, errInvalidTimestamp
	}
}

func fromMillis(ms float64) (time.Time, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxDateMillis {
		return time.Time{}, errInvalidTimestamp
	}
	return time.UnixMilli(int64(math.Trunc(ms))), nil
}

// Layouts that carry their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
}

// Date-only layouts are read as UTC, date-time layouts as local time.
var (
	dateOnlyLayouts = []string{"2006-01-02", "2006-01", "2006"}
	localLayouts    = []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
)

func parseDateString(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range zonedLayouts {
		if at, err := time.Parse(layout, s); err == nil {
			return at, nil
		}
	}
	for _, layout := range dateOnlyLayouts {
		if at, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return at, nil
		}
	}
	for _, layout := range localLayouts {
		if at, err := time.ParseInLocation(layout, s, loc); err == nil {
			return at, nil
		}
	}

	ms, ok := leadingInteger(s)
	if !ok {
		return time.Time{}, errInvalidTimestamp
	}
	return fromMillis(ms)
}

// leadingInteger reads an optional sign followed by decimal digits from the
// start of s and ignores whatever follows, so "1700000000000" and "42px" both
// yield a number while "not a date" yields none.
func leadingInteger(s string) (float64, bool) {
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// floatOrNaN coerces object fields; numeric strings are accepted, anything else
// makes the timestamp unresolvable.
func floatOrNaN(v any) float64 {
	if f, ok := toFloat(v); ok {
		return f
	}
	if s, ok := v.(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return math.NaN()
}

// ── Normalizer ────────────────────────────────────────────────────────────────

// NormalizedTime is a resolved instant plus its display text. Date is nil
// whenever Display is one of the sentinels.
type NormalizedTime struct {
	Date    *time.Time `json:"date"`
	Display string     `json:"display"`
}

// Normalizer formats timestamps for display in a fixed location.
type Normalizer struct {
	loc *time.Location
	log logrus.FieldLogger
}

// NewNormalizer returns a Normalizer for loc. A nil loc means time.Local and a
// nil log discards parse failures.
func NewNormalizer(loc *time.Location, log logrus.FieldLogger) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = discardLogger()
	}
	return &Normalizer{loc: loc, log: log}
}

// Location returns the display location.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Normalize resolves ts and formats it. It never panics.
func (n *Normalizer) Normalize(ts Timestamp) NormalizedTime {
	if ts.Kind == KindAbsent {
		return NormalizedTime{Display: DisplayAbsent}
	}
	at, err := ts.resolve(n.loc)
	if err != nil {
		if !errors.Is(err, errInvalidTimestamp) {
			n.log.WithError(err).WithField("raw", ts.String()).Error("failed to parse timestamp")
		}
		return NormalizedTime{Display: DisplayInvalid}
	}
	return NormalizedTime{Date: &at, Display: at.In(n.loc).Format(DisplayLayout)}
}

// NormalizeValue classifies v and normalizes it in one step.
func (n *Normalizer) NormalizeValue(v any) NormalizedTime {
	return n.Normalize(ParseTimestamp(v))
}

var defaultNormalizer = NewNormalizer(nil, nil)

// NormalizeTimestamp normalizes ts in the local time zone.
func NormalizeTimestamp(ts Timestamp) NormalizedTime {
	return defaultNormalizer.Normalize(ts)
}
