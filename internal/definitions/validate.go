package definitions

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"fhir-engine/diagnostic"
	"fhir-engine/primitive"
	"fhir-engine/schema"
)

var (
	typeNamePattern  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*(\.[A-Z][A-Za-z0-9]*)*$`)
	fieldNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\[x\])?$`)
)

// validationMessages maps validator tags to message templates; %s is the
// tag parameter.
var validationMessages = map[string]string{
	"required":  "is required",
	"oneof":     "must be one of: %s",
	"gte":       "must be at least %s",
	"min":       "must have at least %s entries",
	"uri":       "must be a URI",
	"typename":  "is not a valid type name",
	"fieldname": "is not a valid field name",
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	_ = v.RegisterValidation("typename", func(fl validator.FieldLevel) bool {
		return typeNamePattern.MatchString(fl.Field().String())
	})

	_ = v.RegisterValidation("fieldname", func(fl validator.FieldLevel) bool {
		return fieldNamePattern.MatchString(fl.Field().String())
	})

	return v
}

// Validate checks definition files for malformed types and fields and for
// names defined twice. References between types are checked when the
// definitions are linked by Build.
func Validate(files ...*File) *diagnostic.Diagnostics {
	res := &diagnostic.Diagnostics{}
	seenTypes := map[string]string{}

	for _, f := range files {
		if f == nil {
			res.AddError(diagnostic.CodeInvalidDefinition, "definition file is nil", "", "")
			continue
		}

		for i := range f.Types {
			td := &f.Types[i]

			if err := validate.Struct(td); err != nil {
				addValidationErrors(res, f, td.Name, "", err)
				continue
			}

			if prev, ok := seenTypes[td.Name]; ok {
				res.AddError(diagnostic.CodeDuplicateDefinition,
					fmt.Sprintf("%stype %s is already defined in %s", location(f), td.Name, prev), td.Name, td.Name)

				continue
			}

			seenTypes[td.Name] = sourceName(f)

			validateType(res, f, td)
		}
	}

	return res
}

func validateType(res *diagnostic.Diagnostics, f *File, td *TypeDef) {
	if td.Kind == schema.TypeKindBackbone.String() && !strings.Contains(td.Name, ".") {
		res.AddError(diagnostic.CodeInvalidDefinition,
			fmt.Sprintf("%sbackbone type %s must be named after its enclosing type", location(f), td.Name), td.Name, td.Name)
	}

	if td.Kind == schema.TypeKindAbstract.String() && len(td.Fields) > 0 {
		res.AddError(diagnostic.CodeInvalidDefinition,
			fmt.Sprintf("%sabstract type %s can not declare fields", location(f), td.Name), td.Name, td.Name)
	}

	seenFields := map[string]struct{}{}

	for j := range td.Fields {
		fd := &td.Fields[j]
		at := td.Name + "." + fd.Name

		if err := validate.Struct(fd); err != nil {
			addValidationErrors(res, f, td.Name, at, err)
			continue
		}

		name := strings.TrimSuffix(fd.Name, schema.ChoiceSuffix)
		if _, ok := seenFields[name]; ok {
			res.AddError(diagnostic.CodeDuplicateDefinition,
				fmt.Sprintf("%sfield %s is defined twice", location(f), at), td.Name, at)

			continue
		}

		seenFields[name] = struct{}{}

		validateField(res, f, td, fd, at)
	}
}

func validateField(res *diagnostic.Diagnostics, f *File, td *TypeDef, fd *FieldDef, at string) {
	fail := func(format string, args ...any) {
		res.AddError(diagnostic.CodeInvalidDefinition, location(f)+fmt.Sprintf(format, args...), td.Name, at)
	}

	if fd.Max.Set && fd.Max.Value != schema.Unbounded && fd.Max.Value < fd.Min {
		fail("%s: min %d exceeds max %s", at, fd.Min, fd.Max)
	}

	if fd.Max.Set && fd.Max.Value == 0 {
		fail("%s: max must be at least 1", at)
	}

	if (len(fd.ValidCodes) > 0 || fd.Binding != nil) && !mayBeCoded(fd.Type) {
		fail("%s: a binding needs a coded type, found %s", at, strings.Join(fd.Type, ", "))
	}
}

// mayBeCoded reports whether any of the types can carry a code. Complex
// types are assumed to (Coding, CodeableConcept, Quantity).
func mayBeCoded(types []string) bool {
	for _, tn := range types {
		k := primitive.FromName(tn)
		if !k.IsValid() || k.IsCoded() {
			return true
		}
	}

	return false
}

func addValidationErrors(res *diagnostic.Diagnostics, f *File, typeName, at string, err error) {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		res.AddError(diagnostic.CodeInvalidDefinition, fmt.Sprintf("%s%v", location(f), err), typeName, at)
		return
	}

	for _, fe := range errs {
		msg, ok := validationMessages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}

		if strings.Contains(msg, "%s") {
			msg = fmt.Sprintf(msg, fe.Param())
		}

		subject := at
		if subject == "" {
			subject = typeName
		}

		if subject != "" {
			subject += ": "
		}

		// Drop the struct name: "FieldDef.binding.strength" is reported as "binding.strength".
		key := fe.Namespace()
		if _, rest, found := strings.Cut(key, "."); found {
			key = rest
		}

		res.AddError(diagnostic.CodeInvalidDefinition,
			fmt.Sprintf("%s%s%s %s", location(f), subject, key, msg), typeName, at)
	}
}

// location prefixes messages with the file name when it is known.
func location(f *File) string {
	if f.Source == "" {
		return ""
	}

	return f.Source + ": "
}

func sourceName(f *File) string {
	if f.Source == "" {
		return "an earlier file"
	}

	return f.Source
}
