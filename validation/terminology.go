package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownValueSet is returned by terminologies that do not know a value set.
var ErrUnknownValueSet = errors.New("unknown value set")

// Terminology resolves value-set membership for bindings whose codes are not
// embedded in the type definitions.
type Terminology interface {
	// Contains reports whether code from system is a member of valueSet. An
	// empty system matches a code from any system.
	Contains(valueSet, system, code string) (bool, error)
}

// StaticTerminology is an in-memory Terminology: value set URL to code
// system URL to codes.
type StaticTerminology map[string]map[string][]string

// Contains implements Terminology.
func (s StaticTerminology) Contains(valueSet, system, code string) (bool, error) {
	systems, ok := s[valueSet]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownValueSet, valueSet)
	}

	if system != "" {
		return slices.Contains(systems[system], code), nil
	}

	for _, codes := range systems {
		if slices.Contains(codes, code) {
			return true, nil
		}
	}

	return false, nil
}

// LoadStaticTerminology reads a YAML file mapping value set URLs to code
// systems and their codes:
//
//	http://hl7.org/fhir/ValueSet/languages:
//	  urn:ietf:bcp:47: [en, en-US, de]
func LoadStaticTerminology(filename string) (StaticTerminology, error) {
	data, err := os.ReadFile(filepath.Clean(filename))
	if err != nil {
		return nil, fmt.Errorf("read terminology: %w", err)
	}

	t := StaticTerminology{}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse terminology %s: %w", filename, err)
	}

	return t, nil
}

type membershipKey struct {
	valueSet, system, code string
}

type membership struct {
	ok  bool
	err error
}

// CachedTerminology memoizes the answers of another Terminology in a
// fixed-size LRU cache. It is safe for concurrent use when the wrapped
// terminology is.
type CachedTerminology struct {
	inner Terminology
	cache *lru.Cache[membershipKey, membership]
}

// NewCachedTerminology wraps inner with a cache of size entries.
func NewCachedTerminology(inner Terminology, size int) (*CachedTerminology, error) {
	cache, err := lru.New[membershipKey, membership](size)
	if err != nil {
		return nil, fmt.Errorf("create terminology cache: %w", err)
	}

	return &CachedTerminology{inner: inner, cache: cache}, nil
}

// Contains implements Terminology.
func (c *CachedTerminology) Contains(valueSet, system, code string) (bool, error) {
	key := membershipKey{valueSet: valueSet, system: system, code: code}

	if m, ok := c.cache.Get(key); ok {
		return m.ok, m.err
	}

	ok, err := c.inner.Contains(valueSet, system, code)
	c.cache.Add(key, membership{ok: ok, err: err})

	return ok, err
}

// Len returns the number of cached answers.
func (c *CachedTerminology) Len() int {
	return c.cache.Len()
}
