// Package parser turns raw morph declaration text into ir.TypeDeclaration
// values. It owns the constructor-body extraction state machine and the
// annotation grammar; everything it produces is immutable.
package parser

import (
	"fmt"
	"strings"

	"github.com/morphlang/morphgen/ir"
)

// ParseError reports malformed declaration text. It carries the byte offset
// of the offending construct and a hint for the user.
type ParseError struct {
	SourceID string
	Offset   int
	Msg      string
	Hint     string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: offset %d: %s (%s)", e.SourceID, e.Offset, e.Msg, e.Hint)
	}
	return fmt.Sprintf("%s: offset %d: %s", e.SourceID, e.Offset, e.Msg)
}

// StructuralError reports a declaration that is well-formed text but not a
// valid morph construct: an annotation on something that is not a type
// declaration, or extension used where implementation is required.
type StructuralError struct {
	SourceID string
	Offset   int
	Msg      string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: offset %d: %s", e.SourceID, e.Offset, e.Msg)
}

// scanner is a byte cursor over one source unit.
type scanner struct {
	src      string
	pos      int
	sourceID string

	// ctorWarnings collects constructor-body extraction failures. A failed
	// body aborts only that constructor; the declaration itself survives
	// with the constructor marked Failed.
	ctorWarnings []ir.Warning
}

func (s *scanner) errf(offset int, format string, args ...any) *ParseError {
	return &ParseError{SourceID: s.sourceID, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// skipSpace advances past whitespace and // line comments.
func (s *scanner) skipSpace() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			s.pos++
		case c == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
		default:
			return
		}
	}
}

func (s *scanner) eof() bool {
	s.skipSpace()
	return s.pos >= len(s.src)
}

func (s *scanner) peek() byte {
	if s.pos < len(s.src) {
		return s.src[s.pos]
	}
	return 0
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// readIdent reads an identifier, or returns "" without advancing.
func (s *scanner) readIdent() string {
	s.skipSpace()
	start := s.pos
	if s.pos >= len(s.src) || !isIdentStart(s.src[s.pos]) {
		return ""
	}
	for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
		s.pos++
	}
	return s.src[start:s.pos]
}

// readSigiled reads an optionally sigil-prefixed type name and reports how
// many sigils prefixed it.
func (s *scanner) readSigiled() (name string, sigils int) {
	s.skipSpace()
	for s.pos < len(s.src) && s.src[s.pos] == '$' {
		sigils++
		s.pos++
	}
	return s.readIdent(), sigils
}

// expect consumes the given byte or fails.
func (s *scanner) expect(c byte) error {
	s.skipSpace()
	if s.pos >= len(s.src) || s.src[s.pos] != c {
		return s.errf(s.pos, "expected %q", string(c))
	}
	s.pos++
	return nil
}

// consume consumes the given byte if present.
func (s *scanner) consume(c byte) bool {
	s.skipSpace()
	if s.pos < len(s.src) && s.src[s.pos] == c {
		s.pos++
		return true
	}
	return false
}

// consumeKeyword consumes an identifier if it equals kw.
func (s *scanner) consumeKeyword(kw string) bool {
	s.skipSpace()
	save := s.pos
	if s.readIdent() == kw {
		return true
	}
	s.pos = save
	return false
}

// readTypeText reads a type expression: an optionally sigil-prefixed
// identifier, optional <...> argument text (balanced), and an optional "?"
// suffix. Returns the text with sigils stripped, plus nullability.
func (s *scanner) readTypeText() (text string, nullable bool, err error) {
	s.skipSpace()
	start := s.pos
	name, _ := s.readSigiled()
	if name == "" {
		return "", false, s.errf(start, "expected type")
	}
	text = name
	s.skipSpace()
	if s.peek() == '<' {
		argStart := s.pos
		depth := 0
		for s.pos < len(s.src) {
			switch s.src[s.pos] {
			case '<':
				depth++
			case '>':
				depth--
			}
			s.pos++
			if depth == 0 {
				break
			}
		}
		if depth != 0 {
			return "", false, s.errf(argStart, "unbalanced type arguments")
		}
		text += stripSigils(s.src[argStart:s.pos])
	}
	if s.peek() == '?' {
		s.pos++
		nullable = true
	}
	return text, nullable, nil
}

// stripSigils removes "$" runs that prefix identifiers in type-argument
// text. Type arguments always denote types, so stripping here is
// unconditional; constructor bodies need the context-sensitive rewriter.
func stripSigils(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '$' {
			continue
		}
		b.WriteByte(text[i])
	}
	return b.String()
}

// ParseSource parses all declarations in one source unit. Constructor-body
// failures are returned as warnings alongside the surviving declarations;
// any other malformed construct fails the whole source unit.
func ParseSource(rawText, sourceID string) ([]*ir.TypeDeclaration, []ir.Warning, error) {
	s := &scanner{src: rawText, sourceID: sourceID}
	var decls []*ir.TypeDeclaration
	for !s.eof() {
		decl, err := s.parseDeclaration()
		if err != nil {
			return decls, s.ctorWarnings, err
		}
		decls = append(decls, decl)
	}
	return decls, s.ctorWarnings, nil
}

// ParseDeclaration parses exactly one declaration from rawText.
func ParseDeclaration(rawText, sourceID string) (*ir.TypeDeclaration, []ir.Warning, error) {
	s := &scanner{src: rawText, sourceID: sourceID}
	decl, err := s.parseDeclaration()
	if err != nil {
		return nil, s.ctorWarnings, err
	}
	if !s.eof() {
		return nil, s.ctorWarnings, s.errf(s.pos, "unexpected trailing content after declaration %q", decl.Name)
	}
	return decl, s.ctorWarnings, nil
}

func (s *scanner) parseDeclaration() (*ir.TypeDeclaration, error) {
	s.skipSpace()
	declStart := s.pos

	var ann ir.AnnotationParams
	annotated := false
	for s.consume('@') {
		name := s.readIdent()
		switch name {
		case "morph":
			parsed, err := s.parseMorphAnnotation()
			if err != nil {
				return nil, err
			}
			ann = parsed
			annotated = true
		default:
			return nil, s.errf(declStart, "unknown annotation @%s", name)
		}
		s.skipSpace()
	}

	switch {
	case s.consumeKeyword("enum"):
		return s.parseEnum(declStart, ann)
	case s.consumeKeyword("abstract"):
		if !s.consumeKeyword("class") {
			return nil, s.errf(s.pos, "expected class after abstract")
		}
		return s.parseClass(declStart, ann)
	case s.consumeKeyword("class"):
		return s.parseClass(declStart, ann)
	default:
		if annotated {
			return nil, &StructuralError{
				SourceID: s.sourceID,
				Offset:   s.pos,
				Msg:      "@morph annotation must be applied to a class or enum declaration",
			}
		}
		return nil, s.errf(s.pos, "expected declaration")
	}
}

func (s *scanner) parseEnum(declStart int, ann ir.AnnotationParams) (*ir.TypeDeclaration, error) {
	name, _ := s.readSigiled()
	if name == "" {
		return nil, s.errf(s.pos, "expected enum name")
	}
	if err := s.expect('{'); err != nil {
		return nil, err
	}
	var members []string
	for {
		member := s.readIdent()
		if member != "" {
			members = append(members, member)
		}
		if s.consume(',') {
			continue
		}
		break
	}
	if err := s.expect('}'); err != nil {
		return nil, err
	}
	return &ir.TypeDeclaration{
		Name:        name,
		SourceID:    s.sourceID,
		Enum:        true,
		EnumMembers: members,
		Annotation:  ann,
		Source:      ir.Source{SourceID: s.sourceID, Offset: declStart},
	}, nil
}

func (s *scanner) parseClass(declStart int, ann ir.AnnotationParams) (*ir.TypeDeclaration, error) {
	nameStart := s.pos
	name, sigils := s.readSigiled()
	if name == "" {
		return nil, s.errf(nameStart, "expected class name")
	}

	decl := &ir.TypeDeclaration{
		Name:       name,
		SourceID:   s.sourceID,
		Sealed:     sigils >= 2,
		Annotation: ann,
		Source:     ir.Source{SourceID: s.sourceID, Offset: declStart},
	}

	if s.consume('<') {
		for {
			pname := s.readIdent()
			if pname == "" {
				return nil, s.errf(s.pos, "expected generic parameter name")
			}
			param := ir.GenericParam{Name: pname}
			if s.consumeKeyword("extends") {
				bound, _, err := s.readTypeText()
				if err != nil {
					return nil, err
				}
				param.Bound = bound
			}
			decl.TypeParameters = append(decl.TypeParameters, param)
			if s.consume(',') {
				continue
			}
			break
		}
		if err := s.expect('>'); err != nil {
			return nil, err
		}
	}

	if s.consumeKeyword("extends") {
		return nil, &StructuralError{
			SourceID: s.sourceID,
			Offset:   s.pos,
			Msg:      fmt.Sprintf("declaration %q uses extends; relate to an abstract base with implements", name),
		}
	}

	if s.consumeKeyword("implements") {
		for {
			refStart := s.pos
			ref, err := s.parseInterfaceRef(refStart)
			if err != nil {
				return nil, err
			}
			decl.Implements = append(decl.Implements, ref)
			if s.consume(',') {
				continue
			}
			break
		}
	}

	if err := s.expect('{'); err != nil {
		return nil, err
	}

	if err := s.parseMembers(decl); err != nil {
		return nil, err
	}

	return decl, nil
}

func (s *scanner) parseInterfaceRef(refStart int) (ir.InterfaceRef, error) {
	name, _ := s.readSigiled()
	if name == "" {
		return ir.InterfaceRef{}, s.errf(refStart, "expected interface name")
	}
	ref := ir.InterfaceRef{
		Name:   name,
		Source: ir.Source{SourceID: s.sourceID, Offset: refStart},
	}
	if s.consume('<') {
		for {
			arg, nullable, err := s.readTypeText()
			if err != nil {
				return ir.InterfaceRef{}, err
			}
			if nullable {
				arg += "?"
			}
			ref.Args = append(ref.Args, arg)
			if s.consume(',') {
				continue
			}
			break
		}
		if err := s.expect('>'); err != nil {
			return ir.InterfaceRef{}, err
		}
	}
	return ref, nil
}

// parseMembers parses field and factory members until the class close brace.
func (s *scanner) parseMembers(decl *ir.TypeDeclaration) error {
	for {
		s.skipSpace()
		if s.pos >= len(s.src) {
			if len(s.ctorWarnings) > 0 {
				// A failed constructor body consumed the remaining input;
				// the declaration itself is kept.
				return nil
			}
			return s.errf(len(s.src), "unterminated class body for %q", decl.Name)
		}
		if s.consume('}') {
			return nil
		}

		var meta *ir.JSONMeta
		if s.consume('@') {
			annName := s.readIdent()
			if annName != "jsonKey" {
				return s.errf(s.pos, "unknown member annotation @%s", annName)
			}
			parsed, err := s.parseJSONKeyAnnotation()
			if err != nil {
				return err
			}
			meta = parsed
			s.skipSpace()
		}

		if s.consumeKeyword("factory") {
			if meta != nil {
				return s.errf(s.pos, "@jsonKey cannot annotate a factory constructor")
			}
			ctor, err := s.parseFactory(decl.Name)
			if err != nil {
				return err
			}
			decl.Constructors = append(decl.Constructors, ctor)
			continue
		}

		field, err := s.parseField(meta)
		if err != nil {
			return err
		}
		decl.Fields = append(decl.Fields, field)
	}
}

// parseField parses "name: Type;".
func (s *scanner) parseField(meta *ir.JSONMeta) (ir.FieldDescriptor, error) {
	s.skipSpace()
	fieldStart := s.pos
	name := s.readIdent()
	if name == "" {
		return ir.FieldDescriptor{}, s.errf(fieldStart, "expected field name")
	}
	if err := s.expect(':'); err != nil {
		return ir.FieldDescriptor{}, err
	}
	typeText, nullable, err := s.readTypeText()
	if err != nil {
		return ir.FieldDescriptor{}, err
	}
	if err := s.expect(';'); err != nil {
		return ir.FieldDescriptor{}, err
	}
	return ir.FieldDescriptor{
		Name:     name,
		Type:     typeText,
		Nullable: nullable,
		JSON:     meta,
		Source:   ir.Source{SourceID: s.sourceID, Offset: fieldStart},
	}, nil
}

// parseFactory parses "factory $X.name(params) => expr;" or block form.
// The body is extracted with the ExtractBody state machine; an extraction
// failure demotes the constructor rather than failing the declaration.
func (s *scanner) parseFactory(className string) (ir.Constructor, error) {
	ctorStart := s.pos
	owner, _ := s.readSigiled()
	if owner == "" {
		return ir.Constructor{}, s.errf(ctorStart, "expected constructor owner type")
	}
	if owner != className {
		return ir.Constructor{}, s.errf(ctorStart,
			"factory owner %q does not match declaration %q", owner, className)
	}
	if err := s.expect('.'); err != nil {
		return ir.Constructor{}, err
	}
	name := s.readIdent()
	if name == "" {
		return ir.Constructor{}, s.errf(s.pos, "expected constructor name")
	}

	params, err := s.parseParams()
	if err != nil {
		return ir.Constructor{}, err
	}

	body, kind, bodyStart, bodyEnd, err := ExtractBody(s.src, s.sourceID, s.pos)
	if err != nil {
		// An unterminated body consumes the rest of the input. The failure
		// aborts extraction for this constructor only; the declaration
		// falls back to an empty synthesized body and the error is
		// reported as a warning.
		s.ctorWarnings = append(s.ctorWarnings, ir.Warning{
			Code:        "unterminated_body",
			Message:     err.Error(),
			Declaration: className,
			Source:      &ir.Source{SourceID: s.sourceID, Offset: ctorStart},
		})
		s.pos = len(s.src)
		return ir.Constructor{
			Name:   name,
			Params: params,
			Failed: true,
		}, nil
	}

	// Reposition past the extracted body.
	s.pos = bodyEnd
	if kind == ir.BodyBlock {
		s.pos++ // closing brace
	} else if s.pos < len(s.src) && s.src[s.pos] == ';' {
		s.pos++
	}

	return ir.Constructor{
		Name:      name,
		Params:    params,
		Body:      strings.TrimSpace(body),
		Kind:      kind,
		BodyStart: bodyStart,
		BodyEnd:   bodyEnd,
	}, nil
}

// parseParams parses a constructor parameter list: positional parameters,
// optionally followed by a {named} group supporting required markers and
// "= default" values.
func (s *scanner) parseParams() ([]ir.Param, error) {
	if err := s.expect('('); err != nil {
		return nil, err
	}
	var params []ir.Param
	named := false
	for {
		s.skipSpace()
		switch s.peek() {
		case ')':
			s.pos++
			return params, nil
		case '{':
			s.pos++
			named = true
			continue
		case '}':
			s.pos++
			named = false
			continue
		case ',':
			s.pos++
			continue
		case 0:
			return nil, s.errf(s.pos, "unterminated parameter list")
		}

		p := ir.Param{Named: named, Required: !named}
		if named && s.consumeKeyword("required") {
			p.Required = true
		}

		first, firstNullable, err := s.readTypeText()
		if err != nil {
			return nil, err
		}
		s.skipSpace()
		if isIdentStart(s.peek()) {
			// Two tokens: type then name.
			if firstNullable {
				first += "?"
			}
			p.Type = first
			p.Name = s.readIdent()
		} else {
			// Single token: untyped parameter name.
			p.Name = first
		}

		if s.consume('=') {
			p.Default = strings.TrimSpace(s.readDefaultValue())
		}
		params = append(params, p)
	}
}

// readDefaultValue reads a default value literal up to a top-level comma or
// closing delimiter, respecting nesting and string literals.
func (s *scanner) readDefaultValue() string {
	start := s.pos
	depth := 0
	inString := false
	var quote byte
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if inString {
			if c == '\\' {
				s.pos += 2
				continue
			}
			if c == quote {
				inString = false
			}
			s.pos++
			continue
		}
		switch c {
		case '\'', '"':
			inString = true
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth == 0 {
				return s.src[start:s.pos]
			}
			depth--
		case ',':
			if depth == 0 {
				return s.src[start:s.pos]
			}
		}
		s.pos++
	}
	return s.src[start:s.pos]
}
