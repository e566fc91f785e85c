package entities

import (
	"encoding/json"
	"fmt"
	"time"
)

// PropertyKind discriminates the value stored in a PropertyValue
type PropertyKind string

const (
	PropertyString PropertyKind = "string"
	PropertyInt    PropertyKind = "int"
	PropertyFloat  PropertyKind = "float"
	PropertyBool   PropertyKind = "bool"
	PropertyList   PropertyKind = "list"
)

// PropertyValue is a tagged system property value. Only the field matching
// Kind is meaningful.
type PropertyValue struct {
	Kind   PropertyKind
	String string
	Int    int64
	Float  float64
	Bool   bool
	List   []string
}

func StringProperty(v string) PropertyValue { return PropertyValue{Kind: PropertyString, String: v} }
func IntProperty(v int64) PropertyValue { return PropertyValue{Kind: PropertyInt, Int: v} }
func FloatProperty(v float64) PropertyValue { return PropertyValue{Kind: PropertyFloat, Float: v} }
func BoolProperty(v bool) PropertyValue { return PropertyValue{Kind: PropertyBool, Bool: v} }
func ListProperty(v []string) PropertyValue { return PropertyValue{Kind: PropertyList, List: v} }
func TimeProperty(v time.Time) PropertyValue { return StringProperty(v.UTC().Format(time.RFC3339)) }

// Encode validates the kind and returns the JSON payload to store
func (v PropertyValue) Encode() (string, error) {
	var payload any
	switch v.Kind {
	case PropertyString:
		payload = v.String
	case PropertyInt:
		payload = v.Int
	case PropertyFloat:
		payload = v.Float
	case PropertyBool:
		payload = v.Bool
	case PropertyList:
		list := v.List
		if list == nil {
			list = []string{}
		}
		payload = list
	default:
		return "", fmt.Errorf("unknown property kind %q", v.Kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s property: %w", v.Kind, err)
	}
	return string(raw), nil
}

// DecodeProperty rebuilds a PropertyValue from its stored kind and payload
func DecodeProperty(kind PropertyKind, raw string) (PropertyValue, error) {
	v := PropertyValue{Kind: kind}
	var target any
	switch kind {
	case PropertyString:
		target = &v.String
	case PropertyInt:
		target = &v.Int
	case PropertyFloat:
		target = &v.Float
	case PropertyBool:
		target = &v.Bool
	case PropertyList:
		target = &v.List
	default:
		return PropertyValue{}, fmt.Errorf("unknown property kind %q", kind)
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return PropertyValue{}, fmt.Errorf("failed to decode %s property: %w", kind, err)
	}
	return v, nil
}

// SystemProperty is the stored form of a named PropertyValue
type SystemProperty struct {
	Key       string `gorm:"primaryKey"`
	Kind      PropertyKind
	Value     string
	UpdatedAt time.Time
}

func (SystemProperty) TableName() string {
	return "system_properties"
}
