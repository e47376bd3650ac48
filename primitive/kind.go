package primitive

import (
	"math"

	"fhir-engine/internal/common"
)

//go:generate go tool stringer -type=KindEnum -output=kind_string.go

type KindEnum int

const (
	_ KindEnum = iota // skip zero value, use it as a default (invalid) value for KindEnum

	KindBoolean
	KindInteger
	KindUnsignedInt
	KindPositiveInt
	KindDecimal
	KindString
	KindCode
	KindID
	KindMarkdown
	KindURI
	KindURL
	KindCanonical
	KindOID
	KindUUID
	KindBase64Binary
	KindInstant
	KindDate
	KindDateTime
	KindTime
	KindXHTML

	// KindTotal is a constant that represents the total number of kinds defined
	KindTotal = int(iota)
)

// fhirNames holds the FHIR type name of every kind, indexed by kind.
var fhirNames = [...]string{
	KindBoolean:      "boolean",
	KindInteger:      "integer",
	KindUnsignedInt:  "unsignedInt",
	KindPositiveInt:  "positiveInt",
	KindDecimal:      "decimal",
	KindString:       "string",
	KindCode:         "code",
	KindID:           "id",
	KindMarkdown:     "markdown",
	KindURI:          "uri",
	KindURL:          "url",
	KindCanonical:    "canonical",
	KindOID:          "oid",
	KindUUID:         "uuid",
	KindBase64Binary: "base64Binary",
	KindInstant:      "instant",
	KindDate:         "date",
	KindDateTime:     "dateTime",
	KindTime:         "time",
	KindXHTML:        "xhtml",
}

var byName map[string]KindEnum

func init() {
	byName = make(map[string]KindEnum, KindTotal)

	for k := KindEnum(1); int(k) < KindTotal; k++ {
		byName[fhirNames[k]] = k
	}
}

// FromName returns the kind for a FHIR primitive type name ("dateTime", "code", ...).
// Zero is returned for names that are not primitives.
func FromName(name string) KindEnum {
	return byName[name]
}

// IsValid reports whether k is one of the declared kinds.
func (k KindEnum) IsValid() bool {
	return k > 0 && int(k) < KindTotal
}

// Name returns the FHIR type name of the kind.
func (k KindEnum) Name() string {
	if !k.IsValid() {
		return ""
	}

	return fhirNames[k]
}

// TypeSuffix returns the name used to build choice-type wire names,
// e.g. "DateTime" for valueDateTime.
func (k KindEnum) TypeSuffix() string {
	return common.UpperFirst(k.Name())
}

func (k KindEnum) IsNumber() bool {
	switch k {
	default:
		return false
	case KindInteger, KindUnsignedInt, KindPositiveInt, KindDecimal:
		return true
	}
}

func (k KindEnum) IsInteger() bool {
	switch k {
	default:
		return false
	case KindInteger, KindUnsignedInt, KindPositiveInt:
		return true
	}
}

func (k KindEnum) IsTemporal() bool {
	switch k {
	default:
		return false
	case KindInstant, KindDate, KindDateTime, KindTime:
		return true
	}
}

// IsCoded reports whether values of the kind may carry a terminology binding.
func (k KindEnum) IsCoded() bool {
	switch k {
	default:
		return false
	case KindCode, KindString, KindURI:
		return true
	}
}

// JSONQuoted reports whether the JSON representation of the kind is a string literal.
func (k KindEnum) JSONQuoted() bool {
	return k != KindBoolean && !k.IsNumber()
}

// IntRange returns the inclusive range permitted for integer kinds.
func (k KindEnum) IntRange() (lo, hi int64) {
	switch k {
	default:
		panic("only integer kinds have a meaningful range, but requested for: " + k.String())
	case KindInteger:
		return math.MinInt32, math.MaxInt32
	case KindUnsignedInt:
		return 0, math.MaxInt32
	case KindPositiveInt:
		return 1, math.MaxInt32
	}
}
