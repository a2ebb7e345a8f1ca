package parser

import (
	"strings"

	"github.com/morphlang/morphgen/ir"
)

// parseMorphAnnotation parses the argument list of @morph(...). The cursor
// is positioned just after the annotation name. An empty argument list is
// valid: @morph() enables generation with all switches off.
func (s *scanner) parseMorphAnnotation() (ir.AnnotationParams, error) {
	var ann ir.AnnotationParams
	if err := s.expect('('); err != nil {
		return ann, err
	}
	for {
		s.skipSpace()
		if s.consume(')') {
			return ann, nil
		}
		keyStart := s.pos
		key := s.readIdent()
		if key == "" {
			return ann, s.errf(keyStart, "expected annotation parameter name")
		}
		if err := s.expect(':'); err != nil {
			return ann, err
		}

		switch key {
		case "generateJson":
			v, err := s.readBool(key)
			if err != nil {
				return ann, err
			}
			ann.GenerateJSON = v
		case "explicitToJson":
			v, err := s.readBool(key)
			if err != nil {
				return ann, err
			}
			ann.ExplicitToJSON = v
		case "hidePublicConstructor":
			v, err := s.readBool(key)
			if err != nil {
				return ann, err
			}
			ann.HidePublicConstructor = v
		case "nonSealed":
			v, err := s.readBool(key)
			if err != nil {
				return ann, err
			}
			ann.NonSealed = v
		case "explicitSubTypes":
			names, err := s.readTypeList()
			if err != nil {
				return ann, err
			}
			ann.ExplicitSubtypes = names
		default:
			return ann, s.errf(keyStart, "unknown @morph parameter %q", key)
		}

		s.consume(',')
	}
}

// parseJSONKeyAnnotation parses the argument list of @jsonKey(...).
func (s *scanner) parseJSONKeyAnnotation() (*ir.JSONMeta, error) {
	meta := &ir.JSONMeta{IncludeFromJSON: true, IncludeToJSON: true}
	if err := s.expect('('); err != nil {
		return nil, err
	}
	for {
		s.skipSpace()
		if s.consume(')') {
			return meta, nil
		}
		keyStart := s.pos
		key := s.readIdent()
		if key == "" {
			return nil, s.errf(keyStart, "expected annotation parameter name")
		}
		if err := s.expect(':'); err != nil {
			return nil, err
		}

		switch key {
		case "name":
			v, err := s.readStringLiteral()
			if err != nil {
				return nil, err
			}
			meta.Key = v
		case "ignore":
			v, err := s.readBool(key)
			if err != nil {
				return nil, err
			}
			meta.Ignore = v
		case "defaultValue":
			meta.DefaultValue = strings.TrimSpace(s.readDefaultValue())
		case "includeFromJson":
			v, err := s.readBool(key)
			if err != nil {
				return nil, err
			}
			meta.IncludeFromJSON = v
		case "includeToJson":
			v, err := s.readBool(key)
			if err != nil {
				return nil, err
			}
			meta.IncludeToJSON = v
		default:
			return nil, s.errf(keyStart, "unknown @jsonKey parameter %q", key)
		}

		s.consume(',')
	}
}

// readBool reads "true" or "false".
func (s *scanner) readBool(key string) (bool, error) {
	s.skipSpace()
	start := s.pos
	switch s.readIdent() {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, s.errf(start, "parameter %q expects true or false", key)
	}
}

// readStringLiteral reads a quoted string and returns its contents with
// simple escapes resolved.
func (s *scanner) readStringLiteral() (string, error) {
	s.skipSpace()
	start := s.pos
	if s.pos >= len(s.src) || (s.src[s.pos] != '\'' && s.src[s.pos] != '"') {
		return "", s.errf(start, "expected string literal")
	}
	quote := s.src[s.pos]
	s.pos++
	var b strings.Builder
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '\\' && s.pos+1 < len(s.src) {
			b.WriteByte(s.src[s.pos+1])
			s.pos += 2
			continue
		}
		if c == quote {
			s.pos++
			return b.String(), nil
		}
		b.WriteByte(c)
		s.pos++
	}
	return "", s.errf(start, "unterminated string literal")
}

// readTypeList reads "[$A, $B]" and returns the bare names.
func (s *scanner) readTypeList() ([]string, error) {
	if err := s.expect('['); err != nil {
		return nil, err
	}
	var names []string
	for {
		s.skipSpace()
		if s.consume(']') {
			return names, nil
		}
		name, _ := s.readSigiled()
		if name == "" {
			return nil, s.errf(s.pos, "expected type name in list")
		}
		names = append(names, name)
		s.consume(',')
	}
}
