package wikibase

import (
	"encoding/json"
	"fmt"
)

// Snak is an atomic assertion about a property: a concrete value, known
// absence of a value, or "some unspecified value". Snaks are immutable;
// containers replace them instead of mutating in place.
type Snak interface {
	// P returns the property the snak asserts.
	P() EntityID
	// Equal reports whether two snaks are interchangeable.
	Equal(other Snak) bool

	toWire() wireSnak
}

// wireSnak is the JSON shape of a snak.
type wireSnak struct {
	SnakType  string     `json:"snaktype"`
	Property  string     `json:"property"`
	DataValue *wireValue `json:"datavalue,omitempty"`
}

// ValueSnak asserts that Property has Value. Property must be a P-id; the
// constructors enforce that, struct literals are trusted.
type ValueSnak struct {
	Property EntityID
	Value    Value
}

// NewValueSnak asserts that p has value v.
func NewValueSnak(p EntityID, v Value) (ValueSnak, error) {
	if !p.IsProperty() {
		return ValueSnak{}, fmt.Errorf("%w: %q is not a property id", ErrInvalidID, p.ID)
	}
	return ValueSnak{Property: p, Value: v}, nil
}

func (s ValueSnak) P() EntityID { return s.Property }

func (s ValueSnak) Equal(other Snak) bool {
	o, ok := other.(ValueSnak)
	return ok && o.Property == s.Property && s.Value.Equal(o.Value)
}

func (s ValueSnak) toWire() wireSnak {
	value := s.Value.toWire()
	return wireSnak{SnakType: "value", Property: s.Property.ID, DataValue: &value}
}

// NoValueSnak asserts that Property is known to have no value.
type NoValueSnak struct {
	Property EntityID
}

// NewNoValueSnak asserts that p is known to have no value.
func NewNoValueSnak(p EntityID) (NoValueSnak, error) {
	if !p.IsProperty() {
		return NoValueSnak{}, fmt.Errorf("%w: %q is not a property id", ErrInvalidID, p.ID)
	}
	return NoValueSnak{Property: p}, nil
}

func (s NoValueSnak) P() EntityID { return s.Property }

func (s NoValueSnak) Equal(other Snak) bool {
	o, ok := other.(NoValueSnak)
	return ok && o.Property == s.Property
}

func (s NoValueSnak) toWire() wireSnak {
	return wireSnak{SnakType: "novalue", Property: s.Property.ID}
}

// SomeValueSnak asserts that Property has a value that is not known.
type SomeValueSnak struct {
	Property EntityID
}

// NewSomeValueSnak asserts that p has some unknown value.
func NewSomeValueSnak(p EntityID) (SomeValueSnak, error) {
	if !p.IsProperty() {
		return SomeValueSnak{}, fmt.Errorf("%w: %q is not a property id", ErrInvalidID, p.ID)
	}
	return SomeValueSnak{Property: p}, nil
}

func (s SomeValueSnak) P() EntityID { return s.Property }

func (s SomeValueSnak) Equal(other Snak) bool {
	o, ok := other.(SomeValueSnak)
	return ok && o.Property == s.Property
}

func (s SomeValueSnak) toWire() wireSnak {
	return wireSnak{SnakType: "somevalue", Property: s.Property.ID}
}

// snakFromWire parses one snak payload, binding entity references to site.
func snakFromWire(site string, raw json.RawMessage) (Snak, error) {
	var env struct {
		SnakType  string          `json:"snaktype"`
		Property  string          `json:"property"`
		DataValue json.RawMessage `json:"datavalue"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode snak: %w", err)
	}
	if !propertyIDPattern.MatchString(env.Property) {
		return nil, fmt.Errorf("%w: property %q", ErrMalformedSnak, env.Property)
	}
	p := EntityID{Site: site, ID: env.Property}
	switch env.SnakType {
	case "value":
		v, err := valueFromWire(site, env.DataValue)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", env.Property, err)
		}
		return ValueSnak{Property: p, Value: v}, nil
	case "novalue":
		return NoValueSnak{Property: p}, nil
	case "somevalue":
		return SomeValueSnak{Property: p}, nil
	default:
		return nil, fmt.Errorf("%w: snaktype %q", ErrMalformedSnak, env.SnakType)
	}
}
