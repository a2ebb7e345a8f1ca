// Package rewrite strips the "$" sigil from type references inside
// extracted constructor bodies. The pass is context-sensitive: a
// sigil-prefixed token is rewritten only when the bare identifier is a
// registered type name, because local variables legitimately share the
// sigil convention. A blind substitution would corrupt them.
package rewrite

import "strings"

// Rewrite returns bodyText with every sigil-prefixed known type name
// replaced by its bare form. Tokens whose bare form is not in
// knownTypeNames are left untouched, as is everything inside string
// literals.
func Rewrite(bodyText string, knownTypeNames map[string]bool) string {
	var b strings.Builder
	b.Grow(len(bodyText))

	inString := false
	var quote byte

	for i := 0; i < len(bodyText); {
		c := bodyText[i]

		if inString {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(bodyText) {
				b.WriteByte(bodyText[i+1])
				i += 2
				continue
			}
			if c == quote {
				inString = false
			}
			i++
			continue
		}

		switch {
		case c == '\'' || c == '"':
			inString = true
			quote = c
			b.WriteByte(c)
			i++

		case c == '$':
			// Capture the full sigil run and the identifier after it.
			j := i
			for j < len(bodyText) && bodyText[j] == '$' {
				j++
			}
			k := j
			if k < len(bodyText) && isIdentStart(bodyText[k]) {
				k++
				for k < len(bodyText) && isIdentPart(bodyText[k]) {
					k++
				}
			}
			ident := bodyText[j:k]
			if ident != "" && knownTypeNames[ident] {
				b.WriteString(ident)
			} else {
				b.WriteString(bodyText[i:k])
			}
			i = k

		default:
			b.WriteByte(c)
			i++
		}
	}

	return b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
