package dart

import "unicode"

// Dart reserved words that cannot be used as identifiers.
var reservedWords = map[string]bool{
	"assert":   true,
	"break":    true,
	"case":     true,
	"catch":    true,
	"class":    true,
	"const":    true,
	"continue": true,
	"default":  true,
	"do":       true,
	"else":     true,
	"enum":     true,
	"extends":  true,
	"false":    true,
	"final":    true,
	"finally":  true,
	"for":      true,
	"if":       true,
	"in":       true,
	"is":       true,
	"new":      true,
	"null":     true,
	"rethrow":  true,
	"return":   true,
	"super":    true,
	"switch":   true,
	"this":     true,
	"throw":    true,
	"true":     true,
	"try":      true,
	"var":      true,
	"void":     true,
	"while":    true,
	"with":     true,
}

// escapeReservedWord escapes a reserved word by appending an underscore.
func escapeReservedWord(name string) string {
	if reservedWords[name] {
		return name + "_"
	}
	return name
}

// upperFirst capitalizes the first rune, for operation suffixes and
// with-setter names.
func upperFirst(name string) string {
	if name == "" {
		return name
	}
	runes := []rune(name)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
