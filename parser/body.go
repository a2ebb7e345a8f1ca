package parser

import (
	"fmt"

	"github.com/morphlang/morphgen/ir"
)

// UnterminatedBodyError is returned when end-of-input is reached before a
// constructor body is closed: depth never returns to zero in block form, a
// terminator is never found in arrow form, or a string literal is left open.
type UnterminatedBodyError struct {
	SourceID string
	Offset   int // byte offset where the body began
	Kind     ir.BodyKind
}

func (e *UnterminatedBodyError) Error() string {
	return fmt.Sprintf("%s: unterminated %s constructor body starting at offset %d",
		e.SourceID, e.Kind, e.Offset)
}

// bodyState is the extractor's current state.
type bodyState int

const (
	stateHeader bodyState = iota // scanning constructor name/parameter list
	stateArrowBody
	stateBlockBody
)

// ExtractBody scans src from offset for a constructor body and returns the
// body text, its kind, and the byte span of the body within src.
//
// The scan starts in the header state. Encountering "=>" at depth zero
// switches to arrow form: the body runs to (not including) the first ";" at
// zero parenthesis/bracket depth outside string literals; a "}" at depth
// zero also terminates, so a final member without a trailing semicolon still
// extracts. Encountering "{" at depth zero switches to block form: the body
// runs to the matching close brace, exclusive. Inside a string literal
// (opened by ' or ") every delimiter is ignored except the un-escaped
// matching quote; a backslash consumes the following byte unconditionally.
func ExtractBody(src, sourceID string, offset int) (body string, kind ir.BodyKind, start, end int, err error) {
	state := stateHeader
	depth := 0      // (, [ nesting in header/arrow states
	braceDepth := 0 // { nesting in block state
	inString := false
	var quote byte

	bodyStart := -1
	headerStart := offset

	for i := offset; i < len(src); i++ {
		c := src[i]

		if inString {
			switch c {
			case '\\':
				i++ // escape consumes the next byte, never toggles string state
			case quote:
				inString = false
			}
			continue
		}

		if c == '\'' || c == '"' {
			inString = true
			quote = c
			continue
		}

		switch state {
		case stateHeader:
			switch c {
			case '(', '[':
				depth++
			case ')', ']':
				depth--
			case '=':
				if depth == 0 && i+1 < len(src) && src[i+1] == '>' {
					state = stateArrowBody
					i++ // consume '>'
					bodyStart = i + 1
					depth = 0
				}
			case '{':
				if depth == 0 {
					state = stateBlockBody
					braceDepth = 1
					bodyStart = i + 1
				}
			}

		case stateArrowBody:
			switch c {
			case '(', '[', '{':
				depth++
			case ')', ']':
				depth--
			case '}':
				if depth == 0 {
					// Declaration body closed before a semicolon; the arrow
					// body ends here.
					return src[bodyStart:i], ir.BodyExpression, bodyStart, i, nil
				}
				depth--
			case ';':
				if depth == 0 {
					return src[bodyStart:i], ir.BodyExpression, bodyStart, i, nil
				}
			}

		case stateBlockBody:
			switch c {
			case '{':
				braceDepth++
			case '}':
				braceDepth--
				if braceDepth == 0 {
					return src[bodyStart:i], ir.BodyBlock, bodyStart, i, nil
				}
			}
		}
	}

	failKind := ir.BodyExpression
	failOffset := headerStart
	if state == stateBlockBody {
		failKind = ir.BodyBlock
	}
	if bodyStart >= 0 {
		failOffset = bodyStart
	}
	return "", failKind, 0, 0, &UnterminatedBodyError{
		SourceID: sourceID,
		Offset:   failOffset,
		Kind:     failKind,
	}
}
