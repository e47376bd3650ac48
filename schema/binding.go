package schema

import (
	"slices"
	"sort"
)

// BindingStrength is the FHIR binding strength of a coded field.
type BindingStrength int

const (
	BindingNone BindingStrength = iota
	BindingExample
	BindingPreferred
	BindingExtensible
	BindingRequired
)

var bindingNames = [...]string{
	BindingNone:       "none",
	BindingExample:    "example",
	BindingPreferred:  "preferred",
	BindingExtensible: "extensible",
	BindingRequired:   "required",
}

func (s BindingStrength) String() string {
	if s < BindingNone || s > BindingRequired {
		return bindingNames[BindingNone]
	}

	return bindingNames[s]
}

// ParseBindingStrength parses a strength name. The empty string is BindingNone.
func ParseBindingStrength(s string) (BindingStrength, bool) {
	if s == "" {
		return BindingNone, true
	}

	for i, name := range bindingNames {
		if name == s {
			return BindingStrength(i), true
		}
	}

	return BindingNone, false
}

// Binding ties a coded field to a value set. AllowedCodes holds the codes
// embedded locally, keyed by code system URI; value sets referenced only by
// URI are resolved by a terminology service at validation time.
type Binding struct {
	Strength     BindingStrength
	ValueSet     string
	AllowedCodes map[string][]string
}

// HasCodes reports whether any codes are embedded locally.
func (b *Binding) HasCodes() bool {
	if b == nil {
		return false
	}

	for _, codes := range b.AllowedCodes {
		if len(codes) > 0 {
			return true
		}
	}

	return false
}

// Systems returns the code systems with embedded codes, sorted.
func (b *Binding) Systems() []string {
	if b == nil {
		return nil
	}

	systems := make([]string, 0, len(b.AllowedCodes))
	for system := range b.AllowedCodes {
		systems = append(systems, system)
	}

	sort.Strings(systems)

	return systems
}

// Allows reports whether code is embedded for system. An empty system matches
// any system, which is how plain "code" values are checked.
func (b *Binding) Allows(system, code string) bool {
	if b == nil {
		return false
	}

	if system != "" {
		return slices.Contains(b.AllowedCodes[system], code)
	}

	for _, codes := range b.AllowedCodes {
		if slices.Contains(codes, code) {
			return true
		}
	}

	return false
}
