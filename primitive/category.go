package primitive

type CategoryEnum int

const (
	CategoryNative     CategoryEnum = 1 << iota // canonical Go type: bool, int64, decimal.Decimal, string
	CategoryWideNumber                          // any Go integer width <-> integer kinds, range checked
	CategoryFloatNumber                         // float32, float64 -> decimal
	CategoryIntDecimal                          // Go integers -> decimal
	CategoryDatetime                            // time.Time -> instant, dateTime, date, time
	CategoryBytes                               // []byte -> base64Binary
	CategoryUUID                                // uuid.UUID -> uuid (urn:uuid: form)
	CategoryStringer                            // string-kinded named types (type Status string) -> string kinds

	CategoryAll  = (1 << iota) - 1 //all categories combined
	CategoryNone = 0               // no categories selected
)

// Has reports whether all bits of other are set in c.
func (c CategoryEnum) Has(other CategoryEnum) bool {
	return c&other == other
}

// acceptedCategories lists which non-native categories apply to each kind.
var acceptedCategories map[KindEnum]CategoryEnum

func init() {
	acceptedCategories = make(map[KindEnum]CategoryEnum, KindTotal)

	for k := KindEnum(1); int(k) < KindTotal; k++ {
		c := CategoryNative

		switch {
		case k.IsInteger():
			c |= CategoryWideNumber
		case k == KindDecimal:
			c |= CategoryFloatNumber | CategoryIntDecimal
		case k == KindBoolean:
		default:
			c |= CategoryStringer
		}

		switch k {
		case KindInstant, KindDateTime, KindDate, KindTime:
			c |= CategoryDatetime
		case KindBase64Binary:
			c |= CategoryBytes
		case KindUUID:
			c |= CategoryUUID
		}

		acceptedCategories[k] = c
	}
}

// Accepts returns the categories of Go values a kind can be coerced from.
func (k KindEnum) Accepts() CategoryEnum {
	return acceptedCategories[k]
}
