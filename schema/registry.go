package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"fhir-engine/internal/logging"
	"fhir-engine/internal/match"
)

// Reserved names of the types and fields injected by Link.
const (
	ExtensionType          = "Extension"
	ResourceBaseType       = "Resource"
	FieldID                = "id"
	FieldExtension         = "extension"
	FieldModifierExtension = "modifierExtension"
)

// resourceBaseFields precede extension and modifierExtension in resources.
var resourceBaseFields = []string{"id", "meta", "implicitRules", "language", "text", "contained"}

// Registry stores every known type by qualified name.
//
// Types are first declared (name and kind only) and then defined (fields
// attached), in any order, so forward, self and mutually recursive
// references never depend on registration order. Link resolves every
// reference and freezes the registry.
type Registry struct {
	types   map[string]*ResourceType
	order   []string
	defined map[string]bool
	linked  bool
	log     logrus.FieldLogger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used while building the registry.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Registry) {
		r.log = logging.OrDiscard(l)
	}
}

// NewRegistry creates an empty registry in the declaring phase.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		types:   make(map[string]*ResourceType),
		defined: make(map[string]bool),
		log:     logging.Discard(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Declare announces a type name. The returned placeholder is the same
// pointer every later lookup returns, so it may be referenced before Define.
func (r *Registry) Declare(name string, kind TypeKind) (*ResourceType, error) {
	if r.linked {
		return nil, ErrFrozen
	}

	if name == "" {
		return nil, &DefinitionError{Message: "type name is empty"}
	}

	if kind == TypeKindUnknown {
		return nil, &DefinitionError{Type: name, Message: "type kind is unknown"}
	}

	if existing, ok := r.types[name]; ok {
		if existing.Kind != kind {
			return nil, &DuplicateError{What: "type", Name: name}
		}

		return existing, nil
	}

	rt := &ResourceType{Name: name, Kind: kind}
	if kind == TypeKindBackbone {
		rt.Parent = parentName(name)
	}

	r.types[name] = rt
	r.order = append(r.order, name)

	return rt, nil
}

// Define attaches fields to a declared type.
func (r *Registry) Define(def *ResourceType) error {
	if r.linked {
		return ErrFrozen
	}

	rt, ok := r.types[def.Name]
	if !ok {
		return r.unknown(def.Name, "")
	}

	if r.defined[def.Name] {
		return &DuplicateError{What: "type", Name: def.Name}
	}

	if def.Kind != TypeKindUnknown && def.Kind != rt.Kind {
		return &DefinitionError{Type: def.Name, Message: fmt.Sprintf("declared as %s, defined as %s", rt.Kind, def.Kind)}
	}

	if def.Parent != "" {
		rt.Parent = def.Parent
	}

	rt.Fields = append([]*FieldDescriptor(nil), def.Fields...)
	if err := rt.indexFields(); err != nil {
		rt.Fields = nil
		return err
	}

	r.defined[def.Name] = true

	return nil
}

// Register declares and defines a type in one step.
func (r *Registry) Register(def *ResourceType) error {
	if _, err := r.Declare(def.Name, def.Kind); err != nil {
		return err
	}

	return r.Define(def)
}

// Link resolves every field type, injects the reserved extension fields,
// builds the wire-name indexes and freezes the registry. All problems are
// reported together; a registry that fails to link stays modifiable.
func (r *Registry) Link() error {
	if r.linked {
		return nil
	}

	var errs []error

	withExtensions := r.types[ExtensionType] != nil

	for _, name := range r.order {
		rt := r.types[name]

		if !r.defined[name] && rt.Kind != TypeKindAbstract {
			errs = append(errs, &DefinitionError{Type: name, Message: "type declared but never defined"})
			continue
		}

		if withExtensions {
			r.injectReserved(rt)
		}

		if err := rt.indexFields(); err != nil {
			errs = append(errs, err)
			continue
		}

		for _, f := range rt.Fields {
			if f.Path == "" {
				f.Path = rt.Name + "." + f.WireName
			}

			if err := f.resolveVariants(func(tn string) (*ResourceType, error) {
				return r.lookup(tn, f.Path)
			}); err != nil {
				errs = append(errs, err)
			}
		}

		if err := rt.indexWireNames(); err != nil {
			errs = append(errs, err)
		}

		if rt.Parent != "" {
			parent, ok := r.types[rt.Parent]
			if !ok {
				errs = append(errs, r.unknown(rt.Parent, rt.Name))
				continue
			}

			parent.children = append(parent.children, rt)
		}
	}

	if len(errs) > 0 {
		for _, rt := range r.types {
			rt.children = nil
		}

		r.log.WithField("errors", len(errs)).Error("failed to link type registry")

		return fmt.Errorf("link registry: %w", errors.Join(errs...))
	}

	for _, rt := range r.types {
		rt.linked = true
	}

	r.linked = true
	r.log.WithField("types", len(r.types)).Debug("type registry linked")

	return nil
}

// Linked reports whether Link succeeded.
func (r *Registry) Linked() bool {
	return r.linked
}

// Resolve returns the type registered under name.
func (r *Registry) Resolve(name string) (*ResourceType, error) {
	return r.lookup(name, "")
}

// MustResolve is Resolve for names known at compile time; it panics on error.
func (r *Registry) MustResolve(name string) *ResourceType {
	rt, err := r.Resolve(name)
	if err != nil {
		panic(err)
	}

	return rt
}

// ResolveResource returns the resource type named by a resourceType key or
// an XML root element. Datatypes and backbone elements are rejected.
func (r *Registry) ResolveResource(name string) (*ResourceType, error) {
	rt, ok := r.types[name]
	if !ok || !rt.IsResource() {
		return nil, r.unknownAmong(name, "", r.Resources())
	}

	return rt, nil
}

// Names returns every registered type name, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Resources returns the names of resource types, sorted.
func (r *Registry) Resources() []string {
	var names []string

	for name, rt := range r.types {
		if rt.IsResource() {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return len(r.types)
}

func (r *Registry) lookup(name, referrer string) (*ResourceType, error) {
	if rt, ok := r.types[name]; ok {
		return rt, nil
	}

	return nil, r.unknown(name, referrer)
}

func (r *Registry) unknown(name, referrer string) error {
	return r.unknownAmong(name, referrer, r.Names())
}

func (r *Registry) unknownAmong(name, referrer string, known []string) error {
	return &UnknownTypeError{
		Name:        name,
		Referrer:    referrer,
		Suggestions: match.Suggest(name, known, 3),
	}
}

// injectReserved adds id, extension and modifierExtension where FHIR
// declares them on every element, unless the definition already has them.
func (r *Registry) injectReserved(rt *ResourceType) {
	if rt.Kind == TypeKindAbstract {
		return
	}

	has := func(name string) bool {
		for _, f := range rt.Fields {
			if f.Name == name {
				return true
			}
		}

		return false
	}

	var head []*FieldDescriptor

	if !has(FieldID) {
		// Resource ids are FHIR ids; element ids are free text.
		idType := "string"
		if rt.Kind == TypeKindResource {
			idType = "id"
		}

		head = append(head, NewField(FieldID, 0, 1, idType))
	}

	var ext []*FieldDescriptor

	if !has(FieldExtension) {
		ext = append(ext, NewField(FieldExtension, 0, Unbounded, ExtensionType))
	}

	if rt.Kind != TypeKindComplex && !has(FieldModifierExtension) {
		ext = append(ext, NewField(FieldModifierExtension, 0, Unbounded, ExtensionType))
	}

	if len(head) == 0 && len(ext) == 0 {
		return
	}

	fields := append(head, rt.Fields...)

	if rt.Kind != TypeKindResource {
		rt.Fields = insertAt(fields, len(head), ext)
		return
	}

	pos := 0

	for i, f := range fields {
		for _, base := range resourceBaseFields {
			if f.Name == base {
				pos = i + 1
			}
		}
	}

	rt.Fields = insertAt(fields, pos, ext)
}

func insertAt(fields []*FieldDescriptor, pos int, extra []*FieldDescriptor) []*FieldDescriptor {
	out := make([]*FieldDescriptor, 0, len(fields)+len(extra))
	out = append(out, fields[:pos]...)
	out = append(out, extra...)

	return append(out, fields[pos:]...)
}

func parentName(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}

	return name[:i]
}
