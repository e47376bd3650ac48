package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"fhir-engine/internal/fhirpath"
	"fhir-engine/model"
	"fhir-engine/primitive"
	"fhir-engine/schema"
)

// XML namespaces used by FHIR documents.
const (
	NamespaceFHIR  = "http://hl7.org/fhir"
	NamespaceXHTML = "http://www.w3.org/1999/xhtml"
)

const (
	valueAttr = "value"
	idAttr    = "id"
	urlAttr   = "url"
)

// xhtmlLeaf is narrative markup kept verbatim.
type xhtmlLeaf string

// xmlAttr is an attribute value read from a document. It is written back
// as an attribute whatever its key.
type xmlAttr string

// XML reads and writes FHIR XML.
type XML struct {
	reg  *schema.Registry
	opts options
}

// NewXML creates an XML codec resolving types in reg.
func NewXML(reg *schema.Registry, opts ...Option) *XML {
	return &XML{reg: reg, opts: newOptions(opts)}
}

// Format implements Codec.
func (c *XML) Format() string {
	return FormatXML
}

// Encode writes inst as an XML document in the FHIR namespace. The root
// element is named after the resource (or datatype) of inst.
func (c *XML) Encode(inst *model.Instance) ([]byte, error) {
	tree, err := encodeInstance(xmlDialect{}, inst)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", inst.Type().Name, err)
	}

	var buf bytes.Buffer

	w := &xmlWriter{buf: &buf, enc: xml.NewEncoder(&buf)}
	if c.opts.indent {
		w.enc.Indent("", "  ")
	}

	root := xml.Name{Space: NamespaceFHIR, Local: inst.Type().ShortName()}
	if err := w.object(root, tree); err != nil {
		return nil, fmt.Errorf("encode %s: %w", inst.Type().Name, err)
	}

	if err := w.enc.Flush(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", inst.Type().Name, err)
	}

	return buf.Bytes(), nil
}

// Decode reads an XML document as an instance of rt; see JSON.Decode.
func (c *XML) Decode(data []byte, rt *schema.ResourceType) (*model.Instance, error) {
	name, obj, err := c.parse(data)
	if err != nil {
		return nil, err
	}

	dec := &decoder{reg: c.reg, d: xmlDialect{}, limits: c.opts.limits, log: c.opts.log}

	if name != rt.ShortName() {
		dec.fail(fhirpath.New(rt.Name), nil, "root element %s does not match %s", name, rt.Name)
	}

	return c.decode(dec, obj, rt)
}

// DecodeResource reads a resource whose type is named by the root element.
func (c *XML) DecodeResource(data []byte) (*model.Instance, error) {
	name, obj, err := c.parse(data)
	if err != nil {
		return nil, err
	}

	rt, err := c.reg.ResolveResource(name)
	if err != nil {
		return nil, DecodeErrors{{Path: name, Message: "unsupported resource type", Err: err}}
	}

	return c.decode(&decoder{reg: c.reg, d: xmlDialect{}, limits: c.opts.limits, log: c.opts.log}, obj, rt)
}

func (c *XML) decode(dec *decoder, obj *model.Object, rt *schema.ResourceType) (*model.Instance, error) {
	inst := dec.root(obj, rt)

	c.opts.log.WithField("type", rt.Name).WithField("errors", len(dec.errs)).Debug("decoded XML")

	return inst, dec.errs.orNil()
}

func (c *XML) parse(data []byte) (string, *model.Object, error) {
	if len(data) > c.opts.limits.MaxBytes {
		return "", nil, DecodeErrors{{Message: fmt.Sprintf("document of %d bytes exceeds the limit of %d", len(data), c.opts.limits.MaxBytes)}}
	}

	name, obj, err := parseXML(data, c.opts.limits.MaxDepth)
	if err != nil {
		return "", nil, DecodeErrors{{Message: "malformed XML", Err: err}}
	}

	return name, obj, nil
}

// parseXML reads a document into an ordered tree. Each element becomes a
// *model.Object holding its attributes and child elements by local name;
// repeated children are gathered into []any and XHTML is kept as markup.
func parseXML(data []byte, maxDepth int) (string, *model.Object, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return "", nil, errors.New("document has no root element")
		}

		if err != nil {
			return "", nil, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if start.Name.Space != "" && start.Name.Space != NamespaceFHIR {
			return "", nil, fmt.Errorf("root element is in namespace %q, expected %q", start.Name.Space, NamespaceFHIR)
		}

		obj, err := readElement(dec, start, 1, maxDepth)
		if err != nil {
			return "", nil, err
		}

		return start.Name.Local, obj, nil
	}
}

func readElement(dec *xml.Decoder, start xml.StartElement, depth, maxDepth int) (*model.Object, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("nesting exceeds %d levels at <%s>", maxDepth, start.Name.Local)
	}

	obj := model.NewObject()

	for _, a := range start.Attr {
		if isNamespaceAttr(a) {
			continue
		}

		obj.Set(a.Name.Local, xmlAttr(a.Value))
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			var child any

			if t.Name.Space == NamespaceXHTML {
				markup, err := captureMarkup(dec, t)
				if err != nil {
					return nil, err
				}

				child = xhtmlLeaf(markup)
			} else {
				child, err = readElement(dec, t, depth+1, maxDepth)
				if err != nil {
					return nil, err
				}
			}

			appendChild(obj, t.Name.Local, child)
		case xml.EndElement:
			return obj, nil
		}
	}
}

func appendChild(obj *model.Object, name string, child any) {
	existing, ok := obj.Get(name)
	if !ok {
		obj.Set(name, child)
		return
	}

	if seq, isSeq := existing.([]any); isSeq {
		obj.Set(name, append(seq, child))
		return
	}

	obj.Set(name, []any{existing, child})
}

// captureMarkup re-serializes an element and its content.
func captureMarkup(dec *xml.Decoder, start xml.StartElement) (string, error) {
	var buf bytes.Buffer

	enc := xml.NewEncoder(&buf)
	if err := enc.EncodeToken(cleanStart(start, true)); err != nil {
		return "", err
	}

	for depth := 1; depth > 0; {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			tok = cleanStart(t, false)
		case xml.EndElement:
			depth--
			if depth > 0 {
				tok = xml.EndElement{Name: xml.Name{Local: t.Name.Local}}
			}
		case xml.ProcInst, xml.Directive:
			continue
		}

		if err := enc.EncodeToken(xml.CopyToken(tok)); err != nil {
			return "", err
		}
	}

	if err := enc.Flush(); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// cleanStart drops namespace declarations; the encoder writes its own on
// the outermost element, which nested elements inherit.
func cleanStart(start xml.StartElement, outer bool) xml.StartElement {
	out := xml.StartElement{Name: start.Name}
	if !outer {
		out.Name.Space = ""
	}

	for _, a := range start.Attr {
		if !isNamespaceAttr(a) {
			out.Attr = append(out.Attr, a)
		}
	}

	return out
}

func isNamespaceAttr(a xml.Attr) bool {
	return a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns")
}

type xmlDialect struct{}

func (xmlDialect) encodeLeaf(kind primitive.KindEnum, value any) (any, error) {
	if kind == primitive.KindXHTML {
		s, ok := value.(string)
		if !ok {
			return nil, &primitive.ValueError{Kind: kind, Value: value, Reason: "not a canonical value"}
		}

		return xhtmlLeaf(s), nil
	}

	return primitive.Format(kind, value)
}

func (xmlDialect) decodeLeaf(kind primitive.KindEnum, raw any) (any, *model.Object, error) {
	switch t := raw.(type) {
	case xmlAttr:
		v, err := primitive.Parse(kind, string(t))
		return v, nil, err
	case xhtmlLeaf:
		if kind != primitive.KindXHTML {
			return nil, nil, fmt.Errorf("markup is not a valid %s", kind.Name())
		}

		return string(t), nil, nil
	case *model.Object:
		var ext *model.Object

		for _, key := range t.Keys() {
			if key == valueAttr {
				continue
			}

			if ext == nil {
				ext = model.NewObject()
			}

			v, _ := t.Get(key)
			ext.Set(key, v)
		}

		text, ok := t.Get(valueAttr)
		if !ok {
			return nil, ext, nil
		}

		if isCompound(text) {
			return nil, ext, fmt.Errorf("expected a %s value attribute", kind.Name())
		}

		v, err := primitive.Parse(kind, leafText(text))

		return v, ext, err
	default:
		return nil, nil, fmt.Errorf("expected a %s element, found %T", kind.Name(), raw)
	}
}

func (xmlDialect) resourceOf(raw *model.Object) (string, *model.Object, bool) {
	if raw.Len() != 1 {
		return "", nil, false
	}

	name := raw.Keys()[0]
	value, _ := raw.Get(name)
	body, ok := value.(*model.Object)

	return name, body, ok
}

func (xmlDialect) singleAsSequence() bool {
	return true
}

// xmlWriter writes a wire tree as FHIR XML.
type xmlWriter struct {
	buf *bytes.Buffer
	enc *xml.Encoder
}

// object writes obj as element name. Elements other than resources carry
// their id as an attribute, and extensions their url.
func (w *xmlWriter) object(name xml.Name, obj *model.Object) error {
	_, isResource := encodedResource(obj)

	start := xml.StartElement{Name: name}
	inAttr := map[string]bool{}

	if isResource {
		inAttr[resourceTypeKey] = true
	}

	for _, key := range obj.Keys() {
		value, _ := obj.Get(key)
		if !isAttr(name.Local, key, value, isResource) {
			continue
		}

		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: key}, Value: leafText(value)})
		inAttr[key] = true
	}

	if err := w.enc.EncodeToken(start); err != nil {
		return err
	}

	for _, key := range obj.Keys() {
		if inAttr[key] {
			continue
		}

		value, _ := obj.Get(key)

		if sibling, ok := strings.CutPrefix(key, extensionPrefix); ok {
			if _, has := obj.Get(sibling); has {
				continue
			}

			// Primitive without a value, only an id or extensions.
			if err := w.extensionOnly(sibling, value); err != nil {
				return err
			}

			continue
		}

		if err := w.field(obj, key, value); err != nil {
			return err
		}
	}

	return w.enc.EncodeToken(start.End())
}

func isAttr(element, key string, value any, isResource bool) bool {
	if _, ok := value.(xmlAttr); ok {
		return true
	}

	if isCompound(value) {
		return false
	}

	switch key {
	case idAttr:
		return !isResource
	case urlAttr:
		return element == schema.FieldExtension || element == schema.FieldModifierExtension
	default:
		return false
	}
}

func (w *xmlWriter) field(parent *model.Object, key string, value any) error {
	items := asList(value)

	var exts []any
	if ext, ok := parent.Get(extensionPrefix + key); ok {
		exts = asList(ext)
	}

	for n, item := range items {
		var ext *model.Object
		if n < len(exts) {
			ext, _ = exts[n].(*model.Object)
		}

		if err := w.item(key, item, ext); err != nil {
			return err
		}
	}

	return nil
}

func (w *xmlWriter) extensionOnly(key string, exts any) error {
	for _, item := range asList(exts) {
		if ext, ok := item.(*model.Object); ok {
			if err := w.leaf(key, nil, ext); err != nil {
				return err
			}
		}
	}

	return nil
}

func (w *xmlWriter) item(key string, item any, ext *model.Object) error {
	switch t := item.(type) {
	case *model.Object:
		if name, isResource := encodedResource(t); isResource {
			wrapper := xml.StartElement{Name: xml.Name{Local: key}}
			if err := w.enc.EncodeToken(wrapper); err != nil {
				return err
			}

			if err := w.object(xml.Name{Local: string(name)}, t); err != nil {
				return err
			}

			return w.enc.EncodeToken(wrapper.End())
		}

		return w.object(xml.Name{Local: key}, t)
	case xhtmlLeaf:
		if err := w.enc.Flush(); err != nil {
			return err
		}

		w.buf.WriteString(string(t))

		return nil
	case nil:
		if ext == nil {
			return nil
		}

		return w.leaf(key, nil, ext)
	default:
		return w.leaf(key, t, ext)
	}
}

// leaf writes <key value="..."/>, with the primitive's id and extensions.
func (w *xmlWriter) leaf(key string, value any, ext *model.Object) error {
	start := xml.StartElement{Name: xml.Name{Local: key}}
	inAttr := map[string]bool{}

	if ext != nil {
		for _, k := range ext.Keys() {
			v, _ := ext.Get(k)
			if isAttr(key, k, v, false) {
				start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: k}, Value: leafText(v)})
				inAttr[k] = true
			}
		}
	}

	if value != nil {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: valueAttr}, Value: leafText(value)})
	}

	if err := w.enc.EncodeToken(start); err != nil {
		return err
	}

	if ext != nil {
		for _, k := range ext.Keys() {
			if inAttr[k] {
				continue
			}

			v, _ := ext.Get(k)
			if err := w.field(ext, k, v); err != nil {
				return err
			}
		}
	}

	return w.enc.EncodeToken(start.End())
}

// encodedResource returns the type of an encoded resource.
func encodedResource(obj *model.Object) (resourceName, bool) {
	value, _ := obj.Get(resourceTypeKey)
	name, ok := value.(resourceName)

	return name, ok
}

func isCompound(value any) bool {
	switch value.(type) {
	case *model.Object, []any:
		return true
	default:
		return false
	}
}

// leafText renders a leaf from either dialect's tree as attribute text.
func leafText(value any) string {
	switch t := value.(type) {
	case string:
		return t
	case xmlAttr:
		return string(t)
	case resourceName:
		return string(t)
	case xhtmlLeaf:
		return string(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case decimal.Decimal:
		return primitive.FormatDecimal(t)
	default:
		return fmt.Sprint(t)
	}
}
