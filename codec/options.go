package codec

import (
	"github.com/sirupsen/logrus"

	"fhir-engine/internal/logging"
)

// Limits bound the work a single decode may do on untrusted input.
type Limits struct {
	MaxDepth int // Maximum nesting of objects and arrays
	MaxItems int // Maximum number of values in one repeated element
	MaxBytes int // Maximum document size
}

// DefaultLimits are used when no limits are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth: 64,
		MaxItems: 10_000,
		MaxBytes: 16 << 20,
	}
}

// withDefaults replaces non-positive limits with the defaults.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()

	if l.MaxDepth <= 0 {
		l.MaxDepth = d.MaxDepth
	}

	if l.MaxItems <= 0 {
		l.MaxItems = d.MaxItems
	}

	if l.MaxBytes <= 0 {
		l.MaxBytes = d.MaxBytes
	}

	return l
}

type options struct {
	limits Limits
	indent bool
	log    logrus.FieldLogger
}

// Option configures a codec.
type Option func(*options)

// WithLimits sets the decode limits; zero fields keep their defaults.
func WithLimits(l Limits) Option {
	return func(o *options) {
		o.limits = l.withDefaults()
	}
}

// WithIndent makes Encode produce indented output.
func WithIndent() Option {
	return func(o *options) {
		o.indent = true
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = logging.OrDiscard(l)
	}
}

func newOptions(opts []Option) options {
	o := options{
		limits: DefaultLimits(),
		log:    logging.Discard(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
