package fhirpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// NoIndex marks a segment that does not address a single element.
const NoIndex = -1

// Path is an immutable element path. Every builder method returns a copy.
type Path struct {
	segments []Segment
}

// Segment is one dotted step of a path.
type Segment struct {
	Name   string
	Index  int  // NoIndex unless the step addresses one element of a sequence
	Choice bool // Rendered with the "[x]" suffix
}

func (s Segment) String() string {
	var b strings.Builder

	b.WriteString(s.Name)

	if s.Choice {
		b.WriteString("[x]")
	}

	if s.Index != NoIndex {
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(s.Index))
		b.WriteByte(']')
	}

	return b.String()
}

// New creates a path rooted at a type name.
func New(root string) Path {
	return Path{segments: []Segment{{Name: root, Index: NoIndex}}}
}

// Field appends a step.
func (p Path) Field(name string) Path {
	return p.with(Segment{Name: name, Index: NoIndex})
}

// Choice appends a choice slot step, rendered as "name[x]".
func (p Path) Choice(name string) Path {
	return p.with(Segment{Name: name, Index: NoIndex, Choice: true})
}

// Index addresses one element of the last step.
func (p Path) Index(i int) Path {
	if len(p.segments) == 0 {
		return p
	}

	segments := make([]Segment, len(p.segments))
	copy(segments, p.segments)
	segments[len(segments)-1].Index = i

	return Path{segments: segments}
}

// Segments returns a copy of the steps.
func (p Path) Segments() []Segment {
	return append([]Segment(nil), p.segments...)
}

// Root returns the first step name.
func (p Path) Root() string {
	if len(p.segments) == 0 {
		return ""
	}

	return p.segments[0].Name
}

// Len returns the number of steps.
func (p Path) Len() int {
	return len(p.segments)
}

// IsEmpty returns true for the zero Path.
func (p Path) IsEmpty() bool {
	return len(p.segments) == 0
}

// String returns the full path string.
func (p Path) String() string {
	parts := make([]string, len(p.segments))
	for i, s := range p.segments {
		parts[i] = s.String()
	}

	return strings.Join(parts, ".")
}

// Element returns the path without indexes, as used by element definitions.
func (p Path) Element() string {
	parts := make([]string, len(p.segments))
	for i, s := range p.segments {
		s.Index = NoIndex
		parts[i] = s.String()
	}

	return strings.Join(parts, ".")
}

func (p Path) with(s Segment) Path {
	segments := make([]Segment, 0, len(p.segments)+1)
	segments = append(segments, p.segments...)

	return Path{segments: append(segments, s)}
}

// Parse parses "Root.field[2].value[x]" style paths.
func Parse(path string) (Path, error) {
	if path == "" {
		return Path{}, errors.New("empty path")
	}

	var p Path

	for part := range strings.SplitSeq(path, ".") {
		if part == "" {
			return Path{}, fmt.Errorf("invalid path %q: empty segment", path)
		}

		seg, err := parseSegment(part)
		if err != nil {
			return Path{}, fmt.Errorf("invalid path %q: %w", path, err)
		}

		p.segments = append(p.segments, seg)
	}

	return p, nil
}

func parseSegment(part string) (Segment, error) {
	seg := Segment{Index: NoIndex}

	if open := strings.LastIndexByte(part, '['); open >= 0 && strings.HasSuffix(part, "]") && part[open:] != "[x]" {
		n, err := strconv.Atoi(part[open+1 : len(part)-1])
		if err != nil || n < 0 {
			return Segment{}, fmt.Errorf("invalid index in %q", part)
		}

		seg.Index = n
		part = part[:open]
	}

	if name, ok := strings.CutSuffix(part, "[x]"); ok {
		seg.Choice = true
		part = name
	}

	if !isValidName(part) {
		return Segment{}, fmt.Errorf("invalid name %q", part)
	}

	seg.Name = part

	return seg, nil
}

// isValidName accepts FHIR element names, which may carry the rename prefix.
func isValidName(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case isLetter(r), r == '_':
		case i > 0 && isDigit(r):
		default:
			return false
		}
	}

	return true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
