package stratus

import (
	"fmt"
	"strings"
)

// Pattern is a compiled path template. Templates are split on "/" and
// matched segment for segment: `{name}` captures a single non-empty
// segment, a trailing `{*}` captures the non-empty remainder of the
// path, and every other segment must match literally and
// case-sensitively. No normalization is applied, so `/users` and
// `/users/` are different patterns and empty segments produced by
// `//` are significant.
type Pattern struct {
	raw      string
	segments []segment
	names    []string
	wildcard bool
}

type segment struct {
	value   string
	isParam bool
	isWild  bool
}

// CompilePattern parses a path template. It fails on duplicate capture
// names and on a `{*}` wildcard anywhere but the final segment.
func CompilePattern(template string) (*Pattern, error) {
	parts := strings.Split(template, "/")

	p := &Pattern{
		raw:      template,
		segments: make([]segment, len(parts)),
	}

	seen := make(map[string]bool)
	for i, part := range parts {
		if len(part) > 2 && strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := part[1 : len(part)-1]

			if name == "*" {
				if i != len(parts)-1 {
					return nil, fmt.Errorf("%w: wildcard must be the final segment in %q", ErrPatternSyntax, template)
				}
				p.segments[i] = segment{value: name, isWild: true}
				p.names = append(p.names, name)
				p.wildcard = true
				continue
			}

			if seen[name] {
				return nil, fmt.Errorf("%w: duplicate parameter %q in %q", ErrPatternSyntax, name, template)
			}
			seen[name] = true

			p.segments[i] = segment{value: name, isParam: true}
			p.names = append(p.names, name)
			continue
		}

		// Everything else, including braces with nothing inside,
		// matches literally.
		p.segments[i] = segment{value: part}
	}

	return p, nil
}

// MustCompilePattern is CompilePattern for static templates.
func MustCompilePattern(template string) *Pattern {
	p, err := CompilePattern(template)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the original template.
func (p *Pattern) String() string {
	return p.raw
}

// Names returns the capture names in declaration order.
func (p *Pattern) Names() []string {
	return p.names
}

// Matches reports whether path matches the pattern.
func (p *Pattern) Matches(path string) bool {
	_, ok := p.match(path)
	return ok
}

// Extract returns the captured values in declaration order, or nil if
// the path does not match.
func (p *Pattern) Extract(path string) []string {
	values, ok := p.match(path)
	if !ok {
		return nil
	}
	return values
}

func (p *Pattern) match(path string) ([]string, bool) {
	parts := strings.Split(path, "/")

	if p.wildcard {
		// The wildcard consumes one or more trailing segments.
		if len(parts) < len(p.segments) {
			return nil, false
		}
	} else if len(parts) != len(p.segments) {
		return nil, false
	}

	var values []string
	if len(p.names) > 0 {
		values = make([]string, 0, len(p.names))
	}

	for i, seg := range p.segments {
		if seg.isWild {
			rest := strings.Join(parts[i:], "/")
			if rest == "" {
				return nil, false
			}
			values = append(values, rest)
			return values, true
		}
		if seg.isParam {
			if parts[i] == "" {
				return nil, false
			}
			values = append(values, parts[i])
			continue
		}
		if parts[i] != seg.value {
			return nil, false
		}
	}

	return values, true
}
