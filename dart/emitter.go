package dart

import (
	"fmt"
	"strings"

	"github.com/morphlang/morphgen/ir"
	"github.com/morphlang/morphgen/resolve"
)

// Assembler combines properties, constructors, synthesized operations, and
// serialization hooks into one output unit per declaration. It is a pure
// text producer; it never touches a filesystem.
type Assembler struct {
	cfg       EmitterConfig
	patchable map[string]bool
}

// NewAssembler creates an assembler. patchable is the registry's
// patchable-name table, consulted for nested serialization.
func NewAssembler(cfg EmitterConfig, patchable map[string]bool) *Assembler {
	return &Assembler{cfg: applyDefaults(cfg), patchable: patchable}
}

// Emit produces the full output text for one declaration. Ordering is
// fixed: documentation header, property declarations, constructors (public,
// JSON-compatible when the public one is hidden, then the always-present
// internal constructor), alternate constructors, derived operations,
// serialization hooks, and finally the patch builder class.
func (a *Assembler) Emit(decl *ir.TypeDeclaration, fields *resolve.FieldSet, operations []string, constructors []ir.Constructor) string {
	nl := a.cfg.newline()
	ind := a.cfg.indentUnit()

	var b strings.Builder
	b.WriteString(a.cfg.Header + nl)
	fmt.Fprintf(&b, "// Companion for declaration %s.%s", decl.Name, nl)
	b.WriteString(nl)

	if decl.Enum {
		fmt.Fprintf(&b, "enum %s { %s }%s", decl.Name, strings.Join(decl.EnumMembers, ", "), nl)
		return a.finish(b.String())
	}

	// Class header.
	keyword := "class"
	if decl.Sealed {
		keyword = "abstract class"
	}
	head := typeHeadWithBounds(decl)
	if len(decl.Implements) > 0 {
		var refs []string
		for _, ref := range decl.Implements {
			refs = append(refs, refText(ref))
		}
		fmt.Fprintf(&b, "%s %s implements %s {%s", keyword, head, strings.Join(refs, ", "), nl)
	} else {
		fmt.Fprintf(&b, "%s %s {%s", keyword, head, nl)
	}

	// Properties.
	for _, f := range fields.Fields {
		if decl.Sealed && !decl.Annotation.NonSealed {
			fmt.Fprintf(&b, "%s%s get %s;%s", ind, f.TypeText(), escapeReservedWord(f.Name), nl)
		} else {
			fmt.Fprintf(&b, "%sfinal %s %s;%s", ind, f.TypeText(), escapeReservedWord(f.Name), nl)
		}
	}
	b.WriteString(nl)

	// Constructors. Sealed declarations without nonSealed have nothing to
	// construct.
	if !decl.Sealed || decl.Annotation.NonSealed {
		if !decl.Annotation.HidePublicConstructor {
			fmt.Fprintf(&b, "%s%s(%s);%s", ind, decl.Name, a.fieldParams(fields), nl)
		} else if decl.Annotation.GenerateJSON {
			fmt.Fprintf(&b, "%s%s.forJsonDoNotUse(%s);%s", ind, decl.Name, a.fieldParams(fields), nl)
		}
		fmt.Fprintf(&b, "%s%s._(%s);%s", ind, decl.Name, a.fieldParams(fields), nl)
		b.WriteString(nl)

		for _, ctor := range constructors {
			b.WriteString(a.alternateConstructor(decl, ctor))
			b.WriteString(nl)
		}
	}

	// Derived operations.
	for _, op := range operations {
		b.WriteString(op)
		b.WriteString(nl)
	}

	// Serialization hooks.
	if decl.Annotation.GenerateJSON && (!decl.Sealed || decl.Annotation.NonSealed) {
		b.WriteString(a.fromJSON(decl, fields))
		b.WriteString(nl)
		b.WriteString(a.toJSON(decl, fields))
	}

	b.WriteString("}" + nl)

	// Patch builder class.
	b.WriteString(nl)
	b.WriteString(a.patchClass(decl, fields))

	return a.finish(b.String())
}

func (a *Assembler) finish(out string) string {
	nl := a.cfg.newline()
	out = strings.TrimRight(out, "\r\n")
	if a.cfg.TrailingNewline {
		out += nl
	}
	return out
}

// typeHeadWithBounds renders the class name with generic parameters and
// their bounds, e.g. "Box<T extends num>".
func typeHeadWithBounds(decl *ir.TypeDeclaration) string {
	if len(decl.TypeParameters) == 0 {
		return decl.Name
	}
	var parts []string
	for _, p := range decl.TypeParameters {
		if p.Bound != "" {
			parts = append(parts, p.Name+" extends "+p.Bound)
		} else {
			parts = append(parts, p.Name)
		}
	}
	return decl.Name + "<" + strings.Join(parts, ", ") + ">"
}

// refText renders an implements reference with its arguments.
func refText(ref ir.InterfaceRef) string {
	if len(ref.Args) == 0 {
		return ref.Name
	}
	return ref.Name + "<" + strings.Join(ref.Args, ", ") + ">"
}

// fieldParams renders the this-initializing named parameter list shared by
// the generative constructors: non-nullable fields are required.
func (a *Assembler) fieldParams(fields *resolve.FieldSet) string {
	if len(fields.Fields) == 0 {
		return ""
	}
	var parts []string
	for _, f := range fields.Fields {
		name := escapeReservedWord(f.Name)
		if f.Nullable {
			parts = append(parts, "this."+name)
		} else {
			parts = append(parts, "required this."+name)
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// alternateConstructor renders one extracted (and rewritten) alternate
// constructor. A failed extraction falls back to an empty synthesized body.
func (a *Assembler) alternateConstructor(decl *ir.TypeDeclaration, ctor ir.Constructor) string {
	ind := a.cfg.indentUnit()
	nl := a.cfg.newline()
	sig := fmt.Sprintf("%sfactory %s.%s(%s)", ind, decl.Name, ctor.Name, renderParams(ctor.Params))

	if ctor.Failed {
		return sig + " {}" + nl
	}
	if ctor.Kind == ir.BodyExpression {
		return sig + " => " + ctor.Body + ";" + nl
	}

	var b strings.Builder
	b.WriteString(sig + " {" + nl)
	for _, line := range strings.Split(ctor.Body, "\n") {
		b.WriteString(ind + ind + strings.TrimSpace(line) + nl)
	}
	b.WriteString(ind + "}" + nl)
	return b.String()
}

// renderParams renders a constructor parameter list: positional parameters
// first, then the named group.
func renderParams(params []ir.Param) string {
	var positional, named []string
	for _, p := range params {
		text := ""
		if p.Named && p.Required {
			text += "required "
		}
		if p.Type != "" {
			text += p.Type + " "
		}
		text += escapeReservedWord(p.Name)
		if p.Default != "" {
			text += " = " + p.Default
		}
		if p.Named {
			named = append(named, text)
		} else {
			positional = append(positional, text)
		}
	}
	out := strings.Join(positional, ", ")
	if len(named) > 0 {
		if out != "" {
			out += ", "
		}
		out += "{" + strings.Join(named, ", ") + "}"
	}
	return out
}

// fromJSON renders the external-document factory.
func (a *Assembler) fromJSON(decl *ir.TypeDeclaration, fields *resolve.FieldSet) string {
	ind := a.cfg.indentUnit()
	nl := a.cfg.newline()

	var b strings.Builder
	fmt.Fprintf(&b, "%sfactory %s.fromJson(Map<String, dynamic> json) {%s", ind, decl.Name, nl)
	fmt.Fprintf(&b, "%sreturn %s._(%s", ind+ind, decl.Name, nl)
	for _, f := range fields.Fields {
		name := escapeReservedWord(f.Name)
		fmt.Fprintf(&b, "%s%s: %s,%s", strings.Repeat(ind, 3), name, a.fromJSONExpr(&f), nl)
	}
	b.WriteString(ind + ind + ");" + nl)
	b.WriteString(ind + "}" + nl)
	return b.String()
}

// fromJSONExpr builds the read expression for one field, honoring the
// field's serialization metadata.
func (a *Assembler) fromJSONExpr(f *resolve.ResolvedField) string {
	key := fmt.Sprintf("'%s'", f.ExternalKey())

	if f.JSON != nil && (f.JSON.Ignore || !f.JSON.IncludeFromJSON) {
		if f.JSON.DefaultValue != "" {
			return f.JSON.DefaultValue
		}
		return "null"
	}

	bare := bareType(f.Type)
	var expr string
	switch {
	case f.Enum:
		read := fmt.Sprintf("%s.values.byName(json[%s] as String)", bare, key)
		if f.Nullable {
			expr = fmt.Sprintf("json[%s] == null ? null : %s", key, read)
		} else {
			expr = read
		}
	case a.patchable[bare] && !strings.Contains(f.Type, "<"):
		read := fmt.Sprintf("%s.fromJson(json[%s] as Map<String, dynamic>)", bare, key)
		if f.Nullable {
			expr = fmt.Sprintf("json[%s] == null ? null : %s", key, read)
		} else {
			expr = read
		}
	default:
		expr = fmt.Sprintf("json[%s] as %s", key, f.TypeText())
	}

	if f.JSON != nil && f.JSON.DefaultValue != "" {
		expr = fmt.Sprintf("json.containsKey(%s) ? %s : %s", key, expr, f.JSON.DefaultValue)
	}
	return expr
}

// toJSON renders the external-document writer.
func (a *Assembler) toJSON(decl *ir.TypeDeclaration, fields *resolve.FieldSet) string {
	ind := a.cfg.indentUnit()
	nl := a.cfg.newline()

	var b strings.Builder
	fmt.Fprintf(&b, "%sMap<String, dynamic> toJson() {%s", ind, nl)
	fmt.Fprintf(&b, "%sreturn <String, dynamic>{%s", ind+ind, nl)
	for _, f := range fields.Fields {
		if f.JSON != nil && (f.JSON.Ignore || !f.JSON.IncludeToJSON) {
			continue
		}
		key := fmt.Sprintf("'%s'", f.ExternalKey())
		name := escapeReservedWord(f.Name)
		bare := bareType(f.Type)

		value := name
		switch {
		case f.Enum && f.Nullable:
			value = name + "?.name"
		case f.Enum:
			value = name + ".name"
		case decl.Annotation.ExplicitToJSON && a.patchable[bare] && !strings.Contains(f.Type, "<") && f.Nullable:
			value = name + "?.toJson()"
		case decl.Annotation.ExplicitToJSON && a.patchable[bare] && !strings.Contains(f.Type, "<"):
			value = name + ".toJson()"
		}
		fmt.Fprintf(&b, "%s%s: %s,%s", strings.Repeat(ind, 3), key, value, nl)
	}
	b.WriteString(ind + ind + "};" + nl)
	b.WriteString(ind + "}" + nl)
	return b.String()
}

// patchClass renders the patch builder companion: literal, deferred, and
// nested entry setters over a sparse value map.
func (a *Assembler) patchClass(decl *ir.TypeDeclaration, fields *resolve.FieldSet) string {
	ind := a.cfg.indentUnit()
	nl := a.cfg.newline()

	var b strings.Builder
	fmt.Fprintf(&b, "class %sPatch {%s", decl.Name, nl)
	fmt.Fprintf(&b, "%sfinal Map<String, dynamic> _values = {};%s", ind, nl)
	b.WriteString(nl)
	fmt.Fprintf(&b, "%sMap<String, dynamic> get values => Map.unmodifiable(_values);%s", ind, nl)

	for _, f := range fields.Fields {
		name := escapeReservedWord(f.Name)
		suffix := upperFirst(f.Name)
		key := fmt.Sprintf("'%s'", f.Name)
		typeText := f.TypeText()
		bare := bareType(f.Type)

		// Generic parameter types cannot appear in the non-generic patch
		// builder; those entries take dynamic.
		if isGenericParamType(decl, f.Type) {
			typeText = "dynamic"
		}

		b.WriteString(nl)
		fmt.Fprintf(&b, "%s%sPatch with%s(%s %s) {%s", ind, decl.Name, suffix, typeText, name, nl)
		fmt.Fprintf(&b, "%s_values[%s] = %s;%s", ind+ind, key, name, nl)
		fmt.Fprintf(&b, "%sreturn this;%s", ind+ind, nl)
		fmt.Fprintf(&b, "%s}%s", ind, nl)

		b.WriteString(nl)
		fmt.Fprintf(&b, "%s%sPatch with%sFn(%s Function() fn) {%s", ind, decl.Name, suffix, typeText, nl)
		fmt.Fprintf(&b, "%s_values[%s] = fn;%s", ind+ind, key, nl)
		fmt.Fprintf(&b, "%sreturn this;%s", ind+ind, nl)
		fmt.Fprintf(&b, "%s}%s", ind, nl)

		if a.patchable[bare] && !strings.Contains(f.Type, "<") && !isGenericParamType(decl, f.Type) {
			b.WriteString(nl)
			fmt.Fprintf(&b, "%s%sPatch with%sPatch(%sPatch patch) {%s", ind, decl.Name, suffix, bare, nl)
			fmt.Fprintf(&b, "%s_values[%s] = patch;%s", ind+ind, key, nl)
			fmt.Fprintf(&b, "%sreturn this;%s", ind+ind, nl)
			fmt.Fprintf(&b, "%s}%s", ind, nl)
		}
	}

	b.WriteString("}" + nl)
	return b.String()
}

// isGenericParamType reports whether the field's bare type is one of the
// declaration's own generic parameters.
func isGenericParamType(decl *ir.TypeDeclaration, typeText string) bool {
	bare := bareType(typeText)
	for _, p := range decl.TypeParameters {
		if p.Name == bare {
			return true
		}
	}
	return false
}
