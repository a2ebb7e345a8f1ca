package dart

import (
	"fmt"
	"strings"

	"github.com/morphlang/morphgen/ir"
	"github.com/morphlang/morphgen/resolve"
	"github.com/morphlang/morphgen/schema"
)

// Synthesizer generates the derived operation methods for a declaration:
// copy-with, patch-with, and change-type. It consults the registry's
// patchable-name table instead of inspecting values, so the nested-patch
// decision is table-driven.
type Synthesizer struct {
	reg       *schema.Registry
	res       *resolve.Resolver
	patchable map[string]bool
	cfg       EmitterConfig
}

// NewSynthesizer creates a synthesizer over a frozen registry.
func NewSynthesizer(reg *schema.Registry, res *resolve.Resolver, cfg EmitterConfig) *Synthesizer {
	return &Synthesizer{
		reg:       reg,
		res:       res,
		patchable: reg.PatchableNames(),
		cfg:       applyDefaults(cfg),
	}
}

// Operations synthesizes every operation method for decl, in emission
// order: copy-with per interface (self first), patch-with per interface,
// then change-type per explicit subtype edge.
func (s *Synthesizer) Operations(decl *ir.TypeDeclaration, fields *resolve.FieldSet) ([]string, error) {
	ifaces, err := s.interfaceOrder(decl)
	if err != nil {
		return nil, err
	}

	var ops []string
	for _, iface := range ifaces {
		op, err := s.copyWith(decl, fields, iface)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	for _, iface := range ifaces {
		op, err := s.patchWith(decl, fields, iface)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	edges := s.reg.SubtypeEdges(decl)
	edges = append(edges, reverse(s.reg.EdgesInto(decl.Name))...)
	for _, edge := range edges {
		op, err := s.changeTo(decl, fields, edge.To)
		if err != nil {
			return nil, err
		}
		if op != "" {
			ops = append(ops, op)
		}
	}

	return ops, nil
}

// reverse flips edges pointing at a declaration into edges leaving it, so
// change-type generation is bidirectional.
func reverse(edges []ir.SubtypeEdge) []ir.SubtypeEdge {
	out := make([]ir.SubtypeEdge, len(edges))
	for i, e := range edges {
		out[i] = ir.SubtypeEdge{From: e.To, To: e.From}
	}
	return out
}

// interfaceOrder returns the declaration's name followed by its interface
// ancestors in traversal order, cycle-safe.
func (s *Synthesizer) interfaceOrder(decl *ir.TypeDeclaration) ([]string, error) {
	order := []string{decl.Name}
	visited := map[string]bool{decl.Name: true}

	var walk func(d *ir.TypeDeclaration) error
	walk = func(d *ir.TypeDeclaration) error {
		for _, ref := range d.Implements {
			if visited[ref.Name] {
				continue
			}
			visited[ref.Name] = true
			target := s.reg.Lookup(ref.Name)
			if target == nil {
				return &resolve.UnknownTypeError{Declaration: decl.Name, Target: ref.Name}
			}
			order = append(order, ref.Name)
			if err := walk(target); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(decl); err != nil {
		return nil, err
	}
	return order, nil
}

// signatureOnly reports whether operations on decl emit as abstract
// signatures. Sealed declarations get signatures unless marked nonSealed
// and the operation's interface is the declaration itself.
func signatureOnly(decl *ir.TypeDeclaration, ifaceName string) bool {
	if !decl.Sealed {
		return false
	}
	return !(decl.Annotation.NonSealed && ifaceName == decl.Name)
}

// typeHead returns the declaration's name with its generic parameter list,
// e.g. "Box<T>".
func typeHead(decl *ir.TypeDeclaration) string {
	if len(decl.TypeParameters) == 0 {
		return decl.Name
	}
	names := decl.ParamNames()
	return decl.Name + "<" + strings.Join(names, ", ") + ">"
}

// ifaceSubset returns decl's resolved fields restricted to the field names
// of the interface, in decl's resolved order. Types come from decl's own
// resolution so generic substitution at decl's edges applies.
func (s *Synthesizer) ifaceSubset(fields *resolve.FieldSet, ifaceName string) ([]resolve.ResolvedField, error) {
	if ifaceName == fields.Declaration {
		return fields.Fields, nil
	}
	ifaceSet, err := s.res.Resolve(ifaceName)
	if err != nil {
		return nil, err
	}
	member := make(map[string]bool, len(ifaceSet.Fields))
	for _, f := range ifaceSet.Fields {
		member[f.Name] = true
	}
	var subset []resolve.ResolvedField
	for _, f := range fields.Fields {
		if member[f.Name] {
			subset = append(subset, f)
		}
	}
	return subset, nil
}

// copyWith synthesizes the copy operation against one interface: fields in
// the interface subset accept a caller-supplied deferred value and fall
// back to the current value; all other fields always retain the current
// value.
func (s *Synthesizer) copyWith(decl *ir.TypeDeclaration, fields *resolve.FieldSet, ifaceName string) (string, error) {
	subset, err := s.ifaceSubset(fields, ifaceName)
	if err != nil {
		return "", err
	}

	ind := s.cfg.indentUnit()
	nl := s.cfg.newline()
	head := typeHead(decl)

	var params []string
	for _, f := range subset {
		params = append(params, fmt.Sprintf("%s Function()? %s", f.TypeText(), escapeReservedWord(f.Name)))
	}

	sig := fmt.Sprintf("%s%s copyWith%s({%s})", ind, head, ifaceName, strings.Join(params, ", "))
	if signatureOnly(decl, ifaceName) {
		return sig + ";" + nl, nil
	}

	inSubset := make(map[string]bool, len(subset))
	for _, f := range subset {
		inSubset[f.Name] = true
	}

	var b strings.Builder
	b.WriteString(sig + " {" + nl)
	b.WriteString(ind + ind + "return " + decl.Name + "._(" + nl)
	for _, f := range fields.Fields {
		name := escapeReservedWord(f.Name)
		if inSubset[f.Name] {
			fmt.Fprintf(&b, "%s%s: %s == null ? this.%s : %s(),%s",
				strings.Repeat(ind, 3), name, name, name, name, nl)
		} else {
			fmt.Fprintf(&b, "%s%s: %s,%s", strings.Repeat(ind, 3), name, name, nl)
		}
	}
	b.WriteString(ind + ind + ");" + nl)
	b.WriteString(ind + "}" + nl)
	return b.String(), nil
}

// patchWith synthesizes the patch operation against one interface. Patch
// entries are evaluated lazily: deferred functions are invoked at apply
// time, nested patches recurse into the field's own patch operation when
// the field's type is a generated patchable type.
func (s *Synthesizer) patchWith(decl *ir.TypeDeclaration, fields *resolve.FieldSet, ifaceName string) (string, error) {
	subset, err := s.ifaceSubset(fields, ifaceName)
	if err != nil {
		return "", err
	}

	ind := s.cfg.indentUnit()
	nl := s.cfg.newline()
	head := typeHead(decl)

	sig := fmt.Sprintf("%s%s patchWith%s(%sPatch patch)", ind, head, ifaceName, ifaceName)
	if signatureOnly(decl, ifaceName) {
		return sig + ";" + nl, nil
	}

	inSubset := make(map[string]bool, len(subset))
	for _, f := range subset {
		inSubset[f.Name] = true
	}

	var b strings.Builder
	b.WriteString(sig + " {" + nl)
	b.WriteString(ind + ind + "final values = patch.values;" + nl)
	b.WriteString(ind + ind + "return " + decl.Name + "._(" + nl)
	for _, f := range fields.Fields {
		name := escapeReservedWord(f.Name)
		if !inSubset[f.Name] {
			fmt.Fprintf(&b, "%s%s: %s,%s", strings.Repeat(ind, 3), name, name, nl)
			continue
		}
		fmt.Fprintf(&b, "%s%s: %s,%s", strings.Repeat(ind, 3), name, s.patchFieldExpr(&f, ind), nl)
	}
	b.WriteString(ind + ind + ");" + nl)
	b.WriteString(ind + "}" + nl)
	return b.String(), nil
}

// patchFieldExpr builds the apply expression for one patched field: absent
// key retains, nested patch recurses, deferred entry is invoked, literal
// entry replaces.
func (s *Synthesizer) patchFieldExpr(f *resolve.ResolvedField, ind string) string {
	name := escapeReservedWord(f.Name)
	key := fmt.Sprintf("'%s'", f.Name)
	typeText := f.TypeText()
	bare := bareType(f.Type)

	literalArm := fmt.Sprintf("values[%s] as %s", key, typeText)
	deferredArm := fmt.Sprintf("values[%s] is %s Function() ? (values[%s] as %s Function())() : %s",
		key, typeText, key, typeText, literalArm)

	expr := deferredArm
	if s.patchable[bare] && !strings.Contains(f.Type, "<") {
		var nestedApply string
		if f.Nullable {
			nestedApply = fmt.Sprintf("(%s == null ? null : %s!.patchWith%s(values[%s] as %sPatch))",
				name, name, bare, key, bare)
		} else {
			nestedApply = fmt.Sprintf("%s.patchWith%s(values[%s] as %sPatch)", name, bare, key, bare)
		}
		expr = fmt.Sprintf("values[%s] is %sPatch ? %s : %s", key, bare, nestedApply, expr)
	}

	return fmt.Sprintf("!values.containsKey(%s) ? %s : %s", key, name, expr)
}

// changeTo synthesizes conversion to a sibling target type: shared fields
// carry over with optional deferred overrides, target-only fields become
// required parameters, source-only fields are dropped. Returns "" when the
// target cannot be constructed (sealed or generic destination).
func (s *Synthesizer) changeTo(decl *ir.TypeDeclaration, fields *resolve.FieldSet, targetName string) (string, error) {
	target := s.reg.Lookup(targetName)
	if target == nil {
		return "", &resolve.UnknownTypeError{Declaration: decl.Name, Target: targetName}
	}
	if target.Sealed || len(target.TypeParameters) > 0 {
		// A sealed destination has no concrete constructor to call, and a
		// generic destination's arguments cannot be inferred from an edge.
		return "", nil
	}

	targetFields, err := s.res.Resolve(targetName)
	if err != nil {
		return "", err
	}

	source := make(map[string]bool, len(fields.Fields))
	for _, f := range fields.Fields {
		source[f.Name] = true
	}

	ind := s.cfg.indentUnit()
	nl := s.cfg.newline()

	var params []string
	for _, f := range targetFields.Fields {
		name := escapeReservedWord(f.Name)
		if source[f.Name] {
			params = append(params, fmt.Sprintf("%s Function()? %s", f.TypeText(), name))
		} else {
			params = append(params, fmt.Sprintf("required %s %s", f.TypeText(), name))
		}
	}

	sig := fmt.Sprintf("%s%s changeTo%s({%s})", ind, targetName, targetName, strings.Join(params, ", "))
	if decl.Sealed {
		// The operation's interface is the target type, never the sealed
		// declaration itself, so nonSealed does not apply here.
		return sig + ";" + nl, nil
	}

	var b strings.Builder
	b.WriteString(sig + " {" + nl)
	b.WriteString(ind + ind + "return " + targetName + "._(" + nl)
	for _, f := range targetFields.Fields {
		name := escapeReservedWord(f.Name)
		if source[f.Name] {
			fmt.Fprintf(&b, "%s%s: %s == null ? this.%s : %s(),%s",
				strings.Repeat(ind, 3), name, name, name, name, nl)
		} else {
			fmt.Fprintf(&b, "%s%s: %s,%s", strings.Repeat(ind, 3), name, name, nl)
		}
	}
	b.WriteString(ind + ind + ");" + nl)
	b.WriteString(ind + "}" + nl)
	return b.String(), nil
}

// bareType returns the leading type name of a type text.
func bareType(text string) string {
	for i := 0; i < len(text); i++ {
		c := text[i]
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return text[:i]
		}
	}
	return text
}
