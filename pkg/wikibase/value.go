package wikibase

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
)

// Calendar model URIs understood by Wikibase.
const (
	CalendarGregorian = "http://www.wikidata.org/entity/Q1985727"
	CalendarJulian    = "http://www.wikidata.org/entity/Q1985786"
)

// GlobeEarth is the default globe for coordinates.
const GlobeEarth = "http://www.wikidata.org/entity/Q2"

// Time precisions. Wikibase defines more (down to seconds), but values
// stored on real entities rarely go beyond these.
const (
	PrecisionCentury = 7
	PrecisionDecade  = 8
	PrecisionYear    = 9
	PrecisionMonth   = 10
	PrecisionDay     = 11
)

// Coordinate precisions, as fractions of a degree.
const (
	Degree    = 1.0
	Arcminute = 1.0 / 60
	Arcsecond = 1.0 / 60 / 60
)

var (
	itemIDPattern     = regexp.MustCompile(`^Q\d+$`)
	propertyIDPattern = regexp.MustCompile(`^P\d+$`)
)

// Value is the datavalue carried by a ValueSnak. The set of implementations
// is closed and mirrors the datavalue kinds of the Wikibase wire format:
// EntityID, MonolingualText, GlobeCoordinate, Quantity, Time and String.
type Value interface {
	// Equal reports whether two values are interchangeable.
	Equal(other Value) bool

	toWire() wireValue
}

// wireValue is the tagged envelope a datavalue travels in.
type wireValue struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// EntityID identifies an item or property on a specific Wikibase instance.
// It doubles as the "wikibase-entityid" datavalue, so a statement can point
// at another entity without holding a live Entity.
type EntityID struct {
	Site string
	ID   string
}

// NewEntityID validates id as a Q-id or P-id on site.
func NewEntityID(site, id string) (EntityID, error) {
	if !itemIDPattern.MatchString(id) && !propertyIDPattern.MatchString(id) {
		return EntityID{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return EntityID{Site: site, ID: id}, nil
}

// NewItemID validates id as a Q-id on site.
func NewItemID(site, id string) (EntityID, error) {
	if !itemIDPattern.MatchString(id) {
		return EntityID{}, fmt.Errorf("%w: %q is not an item id", ErrInvalidID, id)
	}
	return EntityID{Site: site, ID: id}, nil
}

// NewPropertyID validates id as a P-id on site.
func NewPropertyID(site, id string) (EntityID, error) {
	if !propertyIDPattern.MatchString(id) {
		return EntityID{}, fmt.Errorf("%w: %q is not a property id", ErrInvalidID, id)
	}
	return EntityID{Site: site, ID: id}, nil
}

// IsItem reports whether the id refers to an item.
func (e EntityID) IsItem() bool { return itemIDPattern.MatchString(e.ID) }

// IsProperty reports whether the id refers to a property.
func (e EntityID) IsProperty() bool { return propertyIDPattern.MatchString(e.ID) }

func (e EntityID) String() string { return e.ID }

func (e EntityID) Equal(other Value) bool {
	o, ok := other.(EntityID)
	return ok && o == e
}

type wireEntityID struct {
	ID string `json:"id"`
}

func (e EntityID) toWire() wireValue {
	return wireValue{Type: "wikibase-entityid", Value: wireEntityID{ID: e.ID}}
}

// String is a plain-string datavalue. On the wire it uses a bare string
// payload instead of a keyed object.
type String string

func (s String) Equal(other Value) bool {
	o, ok := other.(String)
	return ok && o == s
}

func (s String) toWire() wireValue {
	return wireValue{Type: "string", Value: string(s)}
}

// MonolingualText is a string in a specific language, e.g. the word "house"
// in French: MonolingualText{Text: "maison", Language: "fr"}.
type MonolingualText struct {
	Text     string
	Language string
}

func (t MonolingualText) Equal(other Value) bool {
	o, ok := other.(MonolingualText)
	return ok && o == t
}

type wireMonolingualText struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (t MonolingualText) toWire() wireValue {
	return wireValue{Type: "monolingualtext", Value: wireMonolingualText{Text: t.Text, Language: t.Language}}
}

// GlobeCoordinate is a point on a globe. Precision is a fraction of a degree
// (see Degree, Arcminute, Arcsecond); zero means unspecified and is sent as
// null, as is an empty Globe.
type GlobeCoordinate struct {
	Latitude  float64
	Longitude float64
	Precision float64
	Globe     string
}

// NewGlobeCoordinate builds an Earth coordinate from an orb.Point.
func NewGlobeCoordinate(p orb.Point, precision float64) GlobeCoordinate {
	return GlobeCoordinate{Latitude: p.Lat(), Longitude: p.Lon(), Precision: precision, Globe: GlobeEarth}
}

// Point returns the coordinate as an orb.Point in lon/lat order.
func (g GlobeCoordinate) Point() orb.Point {
	return orb.Point{g.Longitude, g.Latitude}
}

func (g GlobeCoordinate) Equal(other Value) bool {
	o, ok := other.(GlobeCoordinate)
	return ok && o == g
}

type wireGlobeCoordinate struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Precision *float64 `json:"precision"`
	Globe     *string  `json:"globe"`
}

func (g GlobeCoordinate) toWire() wireValue {
	payload := wireGlobeCoordinate{Latitude: g.Latitude, Longitude: g.Longitude}
	if g.Precision != 0 {
		p := g.Precision
		payload.Precision = &p
	}
	if g.Globe != "" {
		globe := g.Globe
		payload.Globe = &globe
	}
	return wireValue{Type: "globecoordinate", Value: payload}
}

// Quantity is a decimal amount with a unit and optional bounds. Unit is the
// URI of the unit entity, or "1" for dimensionless quantities; an empty Unit
// is treated as "1".
type Quantity struct {
	Amount decimal.Decimal
	Unit   string
	Upper  *decimal.Decimal
	Lower  *decimal.Decimal
}

// NewQuantity builds a dimensionless quantity without bounds.
func NewQuantity(amount decimal.Decimal) Quantity {
	return Quantity{Amount: amount, Unit: "1"}
}

func (q Quantity) unit() string {
	if q.Unit == "" {
		return "1"
	}
	return q.Unit
}

func (q Quantity) Equal(other Value) bool {
	o, ok := other.(Quantity)
	if !ok {
		return false
	}
	if !o.Amount.Equal(q.Amount) || o.unit() != q.unit() {
		return false
	}
	return equalBound(o.Upper, q.Upper) && equalBound(o.Lower, q.Lower)
}

func equalBound(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

type wireQuantity struct {
	Amount string  `json:"amount"`
	Unit   string  `json:"unit"`
	Upper  *string `json:"upperBound,omitempty"`
	Lower  *string `json:"lowerBound,omitempty"`
}

func (q Quantity) toWire() wireValue {
	payload := wireQuantity{Amount: signedDecimal(q.Amount), Unit: q.unit()}
	if q.Upper != nil {
		s := signedDecimal(*q.Upper)
		payload.Upper = &s
	}
	if q.Lower != nil {
		s := signedDecimal(*q.Lower)
		payload.Lower = &s
	}
	return wireValue{Type: "quantity", Value: payload}
}

// signedDecimal renders d with an explicit sign, as the API expects.
func signedDecimal(d decimal.Decimal) string {
	s := d.String()
	if !strings.HasPrefix(s, "-") {
		return "+" + s
	}
	return s
}

var (
	// timePattern accepts the date part of a Wikibase time string. The time
	// of day is required on the wire but not stored: precisions below a day
	// are not supported here.
	timePattern = regexp.MustCompile(`^([-+]\d+-\d+-\d+)T\d{2}:\d{2}:\d{2}Z`)
	datePattern = regexp.MustCompile(`^([-+]?)(\d+-\d+-\d+)$`)
)

// Time is a point in history: a signed date, a precision and a calendar
// model. The date is stored as "+YYYY-MM-DD" (or "-" for BCE); unused date
// components are zero, e.g. "+1800-00-00" at PrecisionCentury. An empty
// CalendarModel is treated as Gregorian.
type Time struct {
	Time          string
	Precision     int
	CalendarModel string
}

// NewTime builds a Gregorian time from a date like "2018-05-04" or
// "+2018-05-04".
func NewTime(date string, precision int) (Time, error) {
	normalized, err := normalizeDate(date)
	if err != nil {
		return Time{}, err
	}
	return Time{Time: normalized, Precision: precision, CalendarModel: CalendarGregorian}, nil
}

// NewTimeInCalendar is NewTime with an explicit calendar model URI.
func NewTimeInCalendar(date string, precision int, calendarModel string) (Time, error) {
	t, err := NewTime(date, precision)
	if err != nil {
		return Time{}, err
	}
	t.CalendarModel = calendarModel
	return t, nil
}

func normalizeDate(date string) (string, error) {
	m := datePattern.FindStringSubmatch(date)
	if m == nil {
		return "", fmt.Errorf("malformed date %q", date)
	}
	sign := m[1]
	if sign == "" {
		sign = "+"
	}
	return sign + m[2], nil
}

func (t Time) calendar() string {
	if t.CalendarModel == "" {
		return CalendarGregorian
	}
	return t.CalendarModel
}

func (t Time) Equal(other Value) bool {
	o, ok := other.(Time)
	return ok && o.Time == t.Time && o.Precision == t.Precision && o.calendar() == t.calendar()
}

type wireTime struct {
	Time          string `json:"time"`
	Precision     int    `json:"precision"`
	CalendarModel string `json:"calendarmodel"`
	Timezone      int    `json:"timezone"`
	Before        int    `json:"before"`
	After         int    `json:"after"`
}

func (t Time) toWire() wireValue {
	return wireValue{Type: "time", Value: wireTime{
		Time:          t.Time + "T00:00:00Z",
		Precision:     t.Precision,
		CalendarModel: t.calendar(),
	}}
}

// valueFromWire parses a tagged datavalue envelope. Entity references are
// bound to site.
func valueFromWire(site string, raw json.RawMessage) (Value, error) {
	var env struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode datavalue: %w", err)
	}
	switch env.Type {
	case "string":
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return nil, fmt.Errorf("decode string value: %w", err)
		}
		return String(s), nil
	case "wikibase-entityid":
		var payload wireEntityID
		if err := json.Unmarshal(env.Value, &payload); err != nil {
			return nil, fmt.Errorf("decode entity id value: %w", err)
		}
		id, err := NewEntityID(site, payload.ID)
		if err != nil {
			return nil, err
		}
		return id, nil
	case "monolingualtext":
		var payload wireMonolingualText
		if err := json.Unmarshal(env.Value, &payload); err != nil {
			return nil, fmt.Errorf("decode monolingual text value: %w", err)
		}
		return MonolingualText{Text: payload.Text, Language: payload.Language}, nil
	case "globecoordinate":
		var payload wireGlobeCoordinate
		if err := json.Unmarshal(env.Value, &payload); err != nil {
			return nil, fmt.Errorf("decode coordinate value: %w", err)
		}
		g := GlobeCoordinate{Latitude: payload.Latitude, Longitude: payload.Longitude}
		if payload.Precision != nil {
			g.Precision = *payload.Precision
		}
		if payload.Globe != nil {
			g.Globe = *payload.Globe
		}
		return g, nil
	case "quantity":
		return quantityFromWire(env.Value)
	case "time":
		return timeFromWire(env.Value)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedValueType, env.Type)
	}
}

func quantityFromWire(raw json.RawMessage) (Value, error) {
	var payload wireQuantity
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode quantity value: %w", err)
	}
	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil {
		return nil, fmt.Errorf("quantity amount %q: %w", payload.Amount, err)
	}
	q := Quantity{Amount: amount, Unit: payload.Unit}
	if payload.Upper != nil {
		upper, err := decimal.NewFromString(*payload.Upper)
		if err != nil {
			return nil, fmt.Errorf("quantity upper bound %q: %w", *payload.Upper, err)
		}
		q.Upper = &upper
	}
	if payload.Lower != nil {
		lower, err := decimal.NewFromString(*payload.Lower)
		if err != nil {
			return nil, fmt.Errorf("quantity lower bound %q: %w", *payload.Lower, err)
		}
		q.Lower = &lower
	}
	return q, nil
}

func timeFromWire(raw json.RawMessage) (Value, error) {
	var payload wireTime
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode time value: %w", err)
	}
	m := timePattern.FindStringSubmatch(payload.Time)
	if m == nil {
		return nil, fmt.Errorf("malformed time %q", payload.Time)
	}
	return Time{Time: m[1], Precision: payload.Precision, CalendarModel: payload.CalendarModel}, nil
}
