package primitive

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValueError reports a value that cannot be represented as a primitive kind.
type ValueError struct {
	Kind   KindEnum
	Value  any
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%v (%T) is not a valid %s: %s", e.Value, e.Value, e.Kind.Name(), e.Reason)
}

var (
	idPattern       = regexp.MustCompile(`^[A-Za-z0-9\-.]{1,64}$`)
	oidPattern      = regexp.MustCompile(`^urn:oid:[0-2](\.(0|[1-9][0-9]*))+$`)
	codePattern     = regexp.MustCompile(`^[^\s]+( [^\s]+)*$`)
	datePattern     = regexp.MustCompile(`^([0-9]([0-9]([0-9][1-9]|[1-9]0)|[1-9]00)|[1-9]000)(-(0[1-9]|1[0-2])(-(0[1-9]|[1-2][0-9]|3[0-1]))?)?$`)
	dateTimePattern = regexp.MustCompile(`^([0-9]([0-9]([0-9][1-9]|[1-9]0)|[1-9]00)|[1-9]000)(-(0[1-9]|1[0-2])(-(0[1-9]|[1-2][0-9]|3[0-1])(T([01][0-9]|2[0-3]):[0-5][0-9]:([0-5][0-9]|60)(\.[0-9]+)?(Z|(\+|-)((0[0-9]|1[0-3]):[0-5][0-9]|14:00)))?)?)?$`)
	instantPattern  = regexp.MustCompile(`^([0-9]([0-9]([0-9][1-9]|[1-9]0)|[1-9]00)|[1-9]000)-(0[1-9]|1[0-2])-(0[1-9]|[1-2][0-9]|3[0-1])T([01][0-9]|2[0-3]):[0-5][0-9]:([0-5][0-9]|60)(\.[0-9]+)?(Z|(\+|-)((0[0-9]|1[0-3]):[0-5][0-9]|14:00))$`)
	timePattern     = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]:([0-5][0-9]|60)(\.[0-9]+)?$`)
)

// Coerce normalizes v to the canonical Go representation of kind k, accepting
// every conversion category the kind supports.
func Coerce(k KindEnum, v any) (any, error) {
	return CoerceWith(k, v, CategoryAll)
}

// CoerceWith normalizes v to the canonical Go representation of kind k, using
// only the conversion categories in allowed. The canonical types are bool for
// boolean, int64 for the integer kinds, decimal.Decimal for decimal and string
// for everything else.
func CoerceWith(k KindEnum, v any, allowed CategoryEnum) (any, error) {
	if !k.IsValid() {
		return nil, &ValueError{Kind: k, Value: v, Reason: "unknown primitive kind"}
	}

	if v == nil {
		return nil, &ValueError{Kind: k, Value: v, Reason: "nil value"}
	}

	enabled := k.Accepts() & allowed

	switch {
	case k == KindBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}

	case k.IsInteger():
		if n, ok := v.(int64); ok {
			return checkIntRange(k, n, v)
		}

		if enabled.Has(CategoryWideNumber) {
			if n, ok, err := widenInteger(v); ok {
				if err != nil {
					return nil, &ValueError{Kind: k, Value: v, Reason: err.Error()}
				}

				return checkIntRange(k, n, v)
			}
		}

	case k == KindDecimal:
		return coerceDecimal(v, enabled)

	default:
		s, ok := v.(string)
		if !ok {
			s, ok = coerceToText(k, v, enabled)
		}

		if ok {
			if err := Check(k, s); err != nil {
				return nil, err
			}

			return s, nil
		}
	}

	return nil, &ValueError{Kind: k, Value: v, Reason: "incompatible Go type"}
}

func coerceDecimal(v any, enabled CategoryEnum) (any, error) {
	switch d := v.(type) {
	case decimal.Decimal:
		return d, nil
	case *decimal.Decimal:
		if d != nil {
			return *d, nil
		}
	case float64:
		if enabled.Has(CategoryFloatNumber) {
			return decimal.NewFromFloat(d), nil
		}
	case float32:
		if enabled.Has(CategoryFloatNumber) {
			return decimal.NewFromFloat32(d), nil
		}
	default:
		if enabled.Has(CategoryIntDecimal) {
			if n, ok, err := widenInteger(v); ok && err == nil {
				return decimal.NewFromInt(n), nil
			}
		}
	}

	return nil, &ValueError{Kind: KindDecimal, Value: v, Reason: "incompatible Go type"}
}

func coerceToText(k KindEnum, v any, enabled CategoryEnum) (string, bool) {
	switch t := v.(type) {
	case time.Time:
		if !enabled.Has(CategoryDatetime) {
			return "", false
		}

		switch k {
		case KindInstant:
			return t.Format(time.RFC3339Nano), true
		case KindDateTime:
			return t.Format(time.RFC3339Nano), true
		case KindDate:
			return t.Format(time.DateOnly), true
		case KindTime:
			return t.Format(time.TimeOnly), true
		}

	case []byte:
		if enabled.Has(CategoryBytes) {
			return base64.StdEncoding.EncodeToString(t), true
		}

	case uuid.UUID:
		if enabled.Has(CategoryUUID) {
			return "urn:uuid:" + t.String(), true
		}
	}

	if enabled.Has(CategoryStringer) {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.String {
			return rv.String(), true
		}
	}

	return "", false
}

func widenInteger(v any) (int64, bool, error) {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > uint64(1<<63-1) {
			return 0, true, fmt.Errorf("%d overflows int64", u)
		}

		return int64(u), true, nil
	default:
		return 0, false, nil
	}
}

func checkIntRange(k KindEnum, n int64, orig any) (any, error) {
	lo, hi := k.IntRange()
	if n < lo || n > hi {
		return nil, &ValueError{Kind: k, Value: orig, Reason: fmt.Sprintf("out of range [%d, %d]", lo, hi)}
	}

	return n, nil
}

// Check validates the lexical form of a string-represented kind.
func Check(k KindEnum, s string) error {
	fail := func(reason string) error {
		return &ValueError{Kind: k, Value: s, Reason: reason}
	}

	switch k {
	case KindString, KindMarkdown, KindXHTML:
		if strings.TrimSpace(s) == "" {
			return fail("must contain a non-whitespace character")
		}
	case KindCode:
		if !codePattern.MatchString(s) {
			return fail("must not contain leading, trailing or repeated whitespace")
		}
	case KindID:
		if !idPattern.MatchString(s) {
			return fail("must match [A-Za-z0-9\\-\\.]{1,64}")
		}
	case KindURI, KindURL, KindCanonical:
		if s == "" || strings.ContainsAny(s, " \t\r\n") {
			return fail("must be non-empty and contain no whitespace")
		}
	case KindOID:
		if !oidPattern.MatchString(s) {
			return fail("must be an urn:oid: identifier")
		}
	case KindUUID:
		rest, ok := strings.CutPrefix(s, "urn:uuid:")
		if !ok {
			return fail("must start with urn:uuid:")
		}

		if _, err := uuid.Parse(rest); err != nil {
			return fail(err.Error())
		}
	case KindBase64Binary:
		if _, err := base64.StdEncoding.DecodeString(stripSpace(s)); err != nil {
			return fail(err.Error())
		}
	case KindInstant:
		if !instantPattern.MatchString(s) {
			return fail("must be a full timestamp with time zone")
		}
	case KindDate:
		if !datePattern.MatchString(s) {
			return fail("must be YYYY, YYYY-MM or YYYY-MM-DD")
		}
	case KindDateTime:
		if !dateTimePattern.MatchString(s) {
			return fail("must be a partial or full date with optional time and zone")
		}
	case KindTime:
		if !timePattern.MatchString(s) {
			return fail("must be hh:mm:ss")
		}
	case KindBoolean, KindInteger, KindUnsignedInt, KindPositiveInt, KindDecimal:
		return fail("not a string-represented kind")
	default:
		return fail("unknown primitive kind")
	}

	return nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			return -1
		}

		return r
	}, s)
}

// Parse converts the lexical form used by XML attributes into the canonical
// Go representation of kind k.
func Parse(k KindEnum, text string) (any, error) {
	switch {
	case k == KindBoolean:
		switch text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}

		return nil, &ValueError{Kind: k, Value: text, Reason: "must be true or false"}

	case k.IsInteger():
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, &ValueError{Kind: k, Value: text, Reason: "not an integer"}
		}

		return checkIntRange(k, n, text)

	case k == KindDecimal:
		d, err := decimal.NewFromString(text)
		if err != nil {
			return nil, &ValueError{Kind: k, Value: text, Reason: "not a decimal"}
		}

		return d, nil

	default:
		if err := Check(k, text); err != nil {
			return nil, err
		}

		return text, nil
	}
}

// number is satisfied by json.Number from both encoding/json and go-json.
type number interface {
	String() string
	Int64() (int64, error)
}

// FromJSON converts a decoded JSON scalar (bool, string, float64 or a
// json.Number when numbers are decoded with UseNumber) into the canonical Go
// representation of kind k. JSON strings are not accepted for number and
// boolean kinds.
func FromJSON(k KindEnum, v any) (any, error) {
	switch t := v.(type) {
	case bool:
		if k == KindBoolean {
			return t, nil
		}
	case string:
		if k.JSONQuoted() {
			return Parse(k, t)
		}
	case number:
		if k.IsNumber() {
			return Parse(k, t.String())
		}
	case float64:
		if k == KindDecimal {
			return decimal.NewFromFloat(t), nil
		}

		if k.IsInteger() && t == float64(int64(t)) {
			return checkIntRange(k, int64(t), v)
		}
	}

	return nil, &ValueError{Kind: k, Value: v, Reason: "wrong JSON type"}
}

// Format renders a canonical value in its lexical form. Decimals keep the
// number of fractional digits they were parsed with.
func Format(k KindEnum, v any) (string, error) {
	canon, err := Coerce(k, v)
	if err != nil {
		return "", err
	}

	switch t := canon.(type) {
	case bool:
		return strconv.FormatBool(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case decimal.Decimal:
		return FormatDecimal(t), nil
	case string:
		return t, nil
	}

	return "", &ValueError{Kind: k, Value: v, Reason: "unsupported canonical value"}
}

// FormatDecimal renders d without dropping trailing fractional zeros.
func FormatDecimal(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}

	return d.String()
}
