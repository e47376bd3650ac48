package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"fhir-engine/model"
	"fhir-engine/primitive"
	"fhir-engine/schema"
)

// JSON reads and writes FHIR JSON.
type JSON struct {
	reg  *schema.Registry
	opts options
}

// NewJSON creates a JSON codec resolving types in reg.
func NewJSON(reg *schema.Registry, opts ...Option) *JSON {
	return &JSON{reg: reg, opts: newOptions(opts)}
}

// Format implements Codec.
func (c *JSON) Format() string {
	return FormatJSON
}

// Encode writes inst as a JSON object. Resources carry their resourceType.
func (c *JSON) Encode(inst *model.Instance) ([]byte, error) {
	tree, err := encodeInstance(jsonDialect{}, inst)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", inst.Type().Name, err)
	}

	var data []byte
	if c.opts.indent {
		data, err = json.MarshalIndent(tree, "", "  ")
	} else {
		data, err = json.Marshal(tree)
	}

	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", inst.Type().Name, err)
	}

	return data, nil
}

// Decode reads a JSON object as an instance of rt. The instance is returned
// together with every DecodeError found; it is nil only when the document
// could not be parsed at all.
func (c *JSON) Decode(data []byte, rt *schema.ResourceType) (*model.Instance, error) {
	obj, err := c.parseObject(data)
	if err != nil {
		return nil, err
	}

	return c.decode(obj, rt)
}

// DecodeResource reads a resource whose type is named by its resourceType.
func (c *JSON) DecodeResource(data []byte) (*model.Instance, error) {
	obj, err := c.parseObject(data)
	if err != nil {
		return nil, err
	}

	name, _, ok := jsonDialect{}.resourceOf(obj)
	if !ok {
		return nil, DecodeErrors{{Message: "document has no resourceType"}}
	}

	rt, err := c.reg.ResolveResource(name)
	if err != nil {
		return nil, DecodeErrors{{Path: name, Message: "unsupported resource type", Err: err}}
	}

	return c.decode(obj, rt)
}

func (c *JSON) decode(obj *model.Object, rt *schema.ResourceType) (*model.Instance, error) {
	dec := &decoder{reg: c.reg, d: jsonDialect{}, limits: c.opts.limits, log: c.opts.log}
	inst := dec.root(obj, rt)

	c.opts.log.WithField("type", rt.Name).WithField("errors", len(dec.errs)).Debug("decoded JSON")

	return inst, dec.errs.orNil()
}

func (c *JSON) parseObject(data []byte) (*model.Object, error) {
	if len(data) > c.opts.limits.MaxBytes {
		return nil, DecodeErrors{{Message: fmt.Sprintf("document of %d bytes exceeds the limit of %d", len(data), c.opts.limits.MaxBytes)}}
	}

	tree, err := parseJSON(data, c.opts.limits.MaxDepth)
	if err != nil {
		return nil, DecodeErrors{{Message: "malformed JSON", Err: err}}
	}

	obj, ok := tree.(*model.Object)
	if !ok {
		return nil, DecodeErrors{{Message: fmt.Sprintf("expected a JSON object, found %T", tree)}}
	}

	return obj, nil
}

// parseJSON reads a document into an ordered tree: objects become
// *model.Object, arrays []any and numbers json.Number.
func parseJSON(data []byte, maxDepth int) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tree, err := readJSON(dec, 0, maxDepth)
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after the top-level value")
	}

	return tree, nil
}

func readJSON(dec *json.Decoder, depth, maxDepth int) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, isDelim := tok.(json.Delim)
	if !isDelim {
		return tok, nil
	}

	if depth >= maxDepth {
		return nil, fmt.Errorf("nesting exceeds %d levels", maxDepth)
	}

	switch delim {
	case '{':
		obj := model.NewObject()

		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}

			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}

			value, err := readJSON(dec, depth+1, maxDepth)
			if err != nil {
				return nil, err
			}

			if _, dup := obj.Get(key); dup {
				return nil, fmt.Errorf("duplicate key %q", key)
			}

			obj.Set(key, value)
		}

		if _, err := dec.Token(); err != nil {
			return nil, err
		}

		return obj, nil
	case '[':
		arr := []any{}

		for dec.More() {
			value, err := readJSON(dec, depth+1, maxDepth)
			if err != nil {
				return nil, err
			}

			arr = append(arr, value)
		}

		if _, err := dec.Token(); err != nil {
			return nil, err
		}

		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected %v", delim)
	}
}

type jsonDialect struct{}

func (jsonDialect) encodeLeaf(kind primitive.KindEnum, value any) (any, error) {
	switch t := value.(type) {
	case bool, int64, string:
		return t, nil
	case decimal.Decimal:
		return json.Number(primitive.FormatDecimal(t)), nil
	default:
		return nil, &primitive.ValueError{Kind: kind, Value: value, Reason: "not a canonical value"}
	}
}

func (jsonDialect) decodeLeaf(kind primitive.KindEnum, raw any) (any, *model.Object, error) {
	if _, isObj := raw.(*model.Object); isObj {
		return nil, nil, fmt.Errorf("expected a primitive %s, found an object", kind.Name())
	}

	value, err := primitive.FromJSON(kind, raw)

	return value, nil, err
}

func (jsonDialect) resourceOf(raw *model.Object) (string, *model.Object, bool) {
	value, _ := raw.Get(resourceTypeKey)

	name, ok := value.(string)
	if !ok || name == "" {
		return "", nil, false
	}

	return name, raw, true
}

func (jsonDialect) singleAsSequence() bool {
	return false
}
