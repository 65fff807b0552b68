// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/beevik/etree"
)

// instanceChecker walks an instance document against a compiled
// schema and collects problems, each prefixed with the path of the
// offending element.
type instanceChecker struct {
	schema   *xsdSchema
	problems []string
}

func (ic *instanceChecker) problemf(path, format string, args ...any) {
	ic.problems = append(ic.problems, path+": "+fmt.Sprintf(format, args...))
}

func (ic *instanceChecker) document(root *etree.Element) {
	path := "/" + root.Tag
	declaration := ic.schema.elements[root.Tag]
	if declaration == nil {
		ic.problemf(path, "root element <%s> is not declared in the schema", root.Tag)
		return
	}
	ic.element(root, declaration, path)
}

func (ic *instanceChecker) element(e *etree.Element, declaration *xsdElement, path string) {
	if declaration.ref != "" {
		_, local := splitQName(declaration.ref)
		declaration = ic.schema.elements[local]
		if declaration == nil {
			return
		}
	}
	switch {
	case declaration.complex != nil:
		ic.complex(e, declaration.complex, path)
	case declaration.simple != nil:
		ic.simpleElement(e, declaration.simple, path)
	case declaration.typeName == "" || isAnyType(declaration.typeName):
		// anyType accepts any content.
	default:
		if complexType := ic.schema.lookupComplex(declaration.typeName); complexType != nil {
			ic.complex(e, complexType, path)
		} else if simpleType := ic.schema.lookupSimple(declaration.typeName); simpleType != nil {
			ic.simpleElement(e, simpleType, path)
		}
	}
}

func (ic *instanceChecker) simpleElement(e *etree.Element, simpleType *xsdSimpleType, path string) {
	for _, attr := range e.Attr {
		if !isNamespaceAttribute(attr) {
			ic.problemf(path, "unexpected attribute %q", attr.FullKey())
		}
	}
	if len(e.ChildElements()) > 0 {
		ic.problemf(path, "element <%s> must not contain child elements", e.Tag)
		return
	}
	if message := ic.schema.checkValue(simpleType, textContent(e), 0); message != "" {
		ic.problemf(path, "%s", message)
	}
}

func (ic *instanceChecker) complex(e *etree.Element, complexType *xsdComplexType, path string) {
	flat := ic.schema.flatten(complexType, 0)
	ic.attributes(e, flat, path)

	if flat.simple != nil || complexType.simpleContent {
		if len(e.ChildElements()) > 0 {
			ic.problemf(path, "element <%s> must not contain child elements", e.Tag)
			return
		}
		if flat.simple != nil {
			if message := ic.schema.checkValue(flat.simple, textContent(e), 0); message != "" {
				ic.problemf(path, "%s", message)
			}
		}
		return
	}

	if !flat.mixed && strings.TrimSpace(textContent(e)) != "" {
		ic.problemf(path, "element <%s> must not contain text", e.Tag)
	}
	ic.children(e, flat.content, path)
}

func (ic *instanceChecker) attributes(e *etree.Element, flat flatType, path string) {
	declared := make(map[string]*xsdAttribute, len(flat.attributes))
	for _, attribute := range flat.attributes {
		declared[attribute.name] = attribute
		value := e.SelectAttr(attribute.name)
		switch {
		case value == nil && attribute.use == "required":
			ic.problemf(path, "missing required attribute %q", attribute.name)
		case value != nil && attribute.use == "prohibited":
			ic.problemf(path, "attribute %q is not allowed", attribute.name)
		case value != nil:
			simpleType := attribute.simple
			if simpleType == nil && attribute.typeName != "" {
				simpleType = ic.schema.lookupSimple(attribute.typeName)
			}
			if simpleType != nil {
				if message := ic.schema.checkValue(simpleType, value.Value, 0); message != "" {
					ic.problemf(path, "attribute %q: %s", attribute.name, message)
				}
			}
		}
	}
	if flat.anyAttribute {
		return
	}
	for _, attr := range e.Attr {
		if isNamespaceAttribute(attr) {
			continue
		}
		if attr.Space == "" && declared[attr.Key] != nil {
			continue
		}
		ic.problemf(path, "unexpected attribute %q", attr.FullKey())
	}
}

func (ic *instanceChecker) children(e *etree.Element, content *xsdParticle, path string) {
	model := newContentModel()
	if content != nil {
		ic.schema.buildModel(model, content, 1, 1, 0)
	}

	children := e.ChildElements()
	totals := make(map[string]int)
	for _, child := range children {
		totals[child.Tag]++
	}

	counts := make(map[string]int)
	for _, child := range children {
		counts[child.Tag]++
		childPath := path + "/" + child.Tag
		if totals[child.Tag] > 1 {
			childPath += "[" + strconv.Itoa(counts[child.Tag]) + "]"
		}
		occurrence := model.names[child.Tag]
		if occurrence == nil {
			if !model.wildcard {
				ic.problemf(childPath, "unexpected element <%s>", child.Tag)
			}
			continue
		}
		ic.element(child, occurrence.declaration, childPath)
	}

	for _, name := range model.order {
		occurrence := model.names[name]
		found := totals[name]
		if found < occurrence.min {
			ic.problemf(path, "expected at least %d <%s> element(s), found %d", occurrence.min, name, found)
		}
		if occurrence.max != unbounded && found > occurrence.max {
			ic.problemf(path, "expected at most %d <%s> element(s), found %d", occurrence.max, name, found)
		}
	}
	for _, choice := range model.choices {
		found := 0
		for _, name := range choice.names {
			found += totals[name]
		}
		if found < choice.min {
			ic.problemf(path, "expected one of <%s>", strings.Join(choice.names, ">, <"))
		}
	}
}

// isNamespaceAttribute reports attributes that belong to XML itself
// rather than to the document vocabulary.
func isNamespaceAttribute(attr etree.Attr) bool {
	return attr.Space == "xmlns" || (attr.Space == "" && attr.Key == "xmlns") ||
		attr.Space == "xsi" || attr.Space == "xml"
}

// textContent concatenates the character data directly inside e.
func textContent(e *etree.Element) string {
	var builder strings.Builder
	for _, token := range e.Child {
		if data, ok := token.(*etree.CharData); ok {
			builder.WriteString(data.Data)
		}
	}
	return builder.String()
}

// flatType is a complex type with its derivation chain and attribute
// groups folded in.
type flatType struct {
	content      *xsdParticle
	attributes   []*xsdAttribute
	anyAttribute bool
	mixed        bool
	simple       *xsdSimpleType
}

func (s *xsdSchema) flatten(complexType *xsdComplexType, depth int) flatType {
	flat := flatType{
		content:      complexType.content,
		anyAttribute: complexType.anyAttribute,
		mixed:        complexType.mixed,
	}
	var inherited []*xsdAttribute

	if complexType.base != "" && !isAnyType(complexType.base) && depth < maxDerivationDepth {
		if base := s.lookupComplex(complexType.base); base != nil {
			parent := s.flatten(base, depth+1)
			inherited = parent.attributes
			flat.anyAttribute = flat.anyAttribute || parent.anyAttribute
			flat.simple = parent.simple
			if complexType.extension && !complexType.simpleContent {
				switch {
				case parent.content == nil:
				case flat.content == nil:
					flat.content = parent.content
				default:
					flat.content = &xsdParticle{
						kind:     particleSequence,
						children: []*xsdParticle{parent.content, flat.content},
						min:      1,
						max:      1,
					}
				}
			}
		} else if complexType.simpleContent {
			flat.simple = s.lookupSimple(complexType.base)
		}
	}
	if complexType.simpleRestriction != nil && flat.simple != nil {
		restriction := *complexType.simpleRestriction
		restriction.inlineBase = flat.simple
		flat.simple = &restriction
	}

	own := s.expandAttributes(complexType.attributes, complexType.attributeGroupRefs, &flat.anyAttribute, 0)
	flat.attributes = mergeAttributes(inherited, own)
	return flat
}

// expandAttributes resolves attribute refs and attribute group refs
// into a flat list of named declarations.
func (s *xsdSchema) expandAttributes(attributes []*xsdAttribute, groupRefs []string, anyAttribute *bool, depth int) []*xsdAttribute {
	var expanded []*xsdAttribute
	for _, attribute := range attributes {
		if attribute.ref == "" {
			expanded = append(expanded, attribute)
			continue
		}
		_, local := splitQName(attribute.ref)
		target := s.attributes[local]
		if target == nil {
			continue
		}
		resolved := *target
		resolved.use = attribute.use
		expanded = append(expanded, &resolved)
	}
	if depth >= maxDerivationDepth {
		return expanded
	}
	for _, ref := range groupRefs {
		_, local := splitQName(ref)
		group := s.attributeGroups[local]
		if group == nil {
			continue
		}
		if group.anyAttribute {
			*anyAttribute = true
		}
		expanded = append(expanded, s.expandAttributes(group.attributes, group.refs, anyAttribute, depth+1)...)
	}
	return expanded
}

// mergeAttributes lets own declarations override inherited ones with
// the same name.
func mergeAttributes(inherited, own []*xsdAttribute) []*xsdAttribute {
	merged := make([]*xsdAttribute, 0, len(inherited)+len(own))
	for _, attribute := range inherited {
		overridden := slices.ContainsFunc(own, func(candidate *xsdAttribute) bool {
			return candidate.name == attribute.name
		})
		if !overridden {
			merged = append(merged, attribute)
		}
	}
	return append(merged, own...)
}

type occurrence struct {
	declaration *xsdElement
	min         int
	max         int
}

type choiceRule struct {
	names []string
	min   int
}

// contentModel summarizes a content particle as per-name occurrence
// bounds. Element order within a sequence is not enforced.
type contentModel struct {
	names    map[string]*occurrence
	order    []string
	wildcard bool
	choices  []choiceRule
}

func newContentModel() *contentModel {
	return &contentModel{names: make(map[string]*occurrence)}
}

func multiplyMax(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	if a == unbounded || b == unbounded {
		return unbounded
	}
	return a * b
}

func addMax(a, b int) int {
	if a == unbounded || b == unbounded {
		return unbounded
	}
	return a + b
}

func (s *xsdSchema) buildModel(model *contentModel, particle *xsdParticle, minMultiplier, maxMultiplier, depth int) {
	if depth > maxDerivationDepth {
		return
	}
	minimum := particle.min * minMultiplier
	maximum := multiplyMax(particle.max, maxMultiplier)

	switch particle.kind {
	case particleElement:
		declaration := particle.element
		if declaration.ref != "" {
			_, local := splitQName(declaration.ref)
			if target := s.elements[local]; target != nil {
				declaration = target
			}
		}
		name := declaration.name
		if existing, ok := model.names[name]; ok {
			existing.min += minimum
			existing.max = addMax(existing.max, maximum)
			return
		}
		model.names[name] = &occurrence{declaration: declaration, min: minimum, max: maximum}
		model.order = append(model.order, name)
	case particleAny:
		model.wildcard = true
	case particleGroupRef:
		_, local := splitQName(particle.ref)
		if group := s.groups[local]; group != nil {
			s.buildModel(model, group, minimum, maximum, depth+1)
		}
	case particleSequence, particleAll:
		for _, child := range particle.children {
			s.buildModel(model, child, minimum, maximum, depth+1)
		}
	case particleChoice:
		if len(particle.children) == 1 {
			s.buildModel(model, particle.children[0], minimum, maximum, depth+1)
			return
		}
		rule := choiceRule{min: minimum}
		required := minimum > 0
		for _, child := range particle.children {
			s.buildModel(model, child, 0, maximum, depth+1)
			if child.kind != particleElement || child.min == 0 {
				required = false
				continue
			}
			name := child.element.name
			if child.element.ref != "" {
				_, name = splitQName(child.element.ref)
			}
			rule.names = append(rule.names, name)
		}
		if required {
			model.choices = append(model.choices, rule)
		}
	}
}

// checkValue validates a lexical value against a simple type and
// returns a problem description, or "" when the value is valid.
func (s *xsdSchema) checkValue(simpleType *xsdSimpleType, value string, depth int) string {
	if depth > maxDerivationDepth {
		return ""
	}
	if simpleType.builtin != "" {
		return checkBuiltin(simpleType.builtin, value)
	}
	if simpleType.isList {
		item := simpleType.inlineItem
		if item == nil {
			item = s.lookupSimple(simpleType.listItem)
		}
		items := strings.Fields(value)
		if item != nil {
			for _, field := range items {
				if message := s.checkValue(item, field, depth+1); message != "" {
					return message
				}
			}
		}
		return checkLength(simpleType, len(items), "items")
	}
	if simpleType.isUnion {
		members := slices.Clone(simpleType.inlineMembers)
		for _, name := range simpleType.unionMembers {
			if member := s.lookupSimple(name); member != nil {
				members = append(members, member)
			}
		}
		for _, member := range members {
			if s.checkValue(member, value, depth+1) == "" {
				return ""
			}
		}
		return fmt.Sprintf("value %q matches none of the union member types", value)
	}

	base := simpleType.inlineBase
	if base == nil && simpleType.base != "" {
		base = s.lookupSimple(simpleType.base)
	}
	if base != nil {
		if message := s.checkValue(base, value, depth+1); message != "" {
			return message
		}
	}
	if !s.preservesWhitespace(simpleType, 0) {
		value = strings.Join(strings.Fields(value), " ")
	}
	return checkFacets(simpleType, value)
}

// preservesWhitespace reports whether the type derives from xs:string,
// whose values are compared without whitespace collapsing.
func (s *xsdSchema) preservesWhitespace(simpleType *xsdSimpleType, depth int) bool {
	for simpleType != nil && depth < maxDerivationDepth {
		if simpleType.builtin != "" {
			return simpleType.builtin == "string" || simpleType.builtin == "normalizedString"
		}
		if simpleType.inlineBase != nil {
			simpleType = simpleType.inlineBase
		} else if simpleType.base != "" {
			simpleType = s.lookupSimple(simpleType.base)
		} else {
			return false
		}
		depth++
	}
	return false
}

func checkFacets(simpleType *xsdSimpleType, value string) string {
	if len(simpleType.enumeration) > 0 && !slices.Contains(simpleType.enumeration, value) {
		return fmt.Sprintf("value %q is not one of %s", value, quoteAll(simpleType.enumeration))
	}
	if len(simpleType.patterns) > 0 {
		matched := slices.ContainsFunc(simpleType.patterns, func(pattern *regexp.Regexp) bool {
			return pattern.MatchString(value)
		})
		if !matched {
			return fmt.Sprintf("value %q does not match the required pattern", value)
		}
	}
	if message := checkLength(simpleType, utf8.RuneCountInString(value), "characters"); message != "" {
		return message
	}
	return checkBounds(simpleType, value)
}

func checkLength(simpleType *xsdSimpleType, length int, unit string) string {
	switch {
	case simpleType.length != nil && length != *simpleType.length:
		return fmt.Sprintf("length is %d %s, want exactly %d", length, unit, *simpleType.length)
	case simpleType.minLength != nil && length < *simpleType.minLength:
		return fmt.Sprintf("length is %d %s, want at least %d", length, unit, *simpleType.minLength)
	case simpleType.maxLength != nil && length > *simpleType.maxLength:
		return fmt.Sprintf("length is %d %s, want at most %d", length, unit, *simpleType.maxLength)
	}
	return ""
}

func checkBounds(simpleType *xsdSimpleType, value string) string {
	bounds := []struct {
		limit string
		ok    func(int) bool
		text  string
	}{
		{simpleType.minInclusive, func(c int) bool { return c >= 0 }, "at least"},
		{simpleType.maxInclusive, func(c int) bool { return c <= 0 }, "at most"},
		{simpleType.minExclusive, func(c int) bool { return c > 0 }, "greater than"},
		{simpleType.maxExclusive, func(c int) bool { return c < 0 }, "less than"},
	}
	for _, bound := range bounds {
		if bound.limit == "" {
			continue
		}
		if !bound.ok(compareValues(value, bound.limit)) {
			return fmt.Sprintf("value %q must be %s %s", value, bound.text, bound.limit)
		}
	}
	return ""
}

// compareValues orders numerically when both sides are numbers and
// lexically otherwise, which suits ISO 8601 dates.
func compareValues(a, b string) int {
	left, leftOK := new(big.Rat).SetString(strings.TrimPrefix(a, "+"))
	right, rightOK := new(big.Rat).SetString(strings.TrimPrefix(b, "+"))
	if leftOK && rightOK {
		return left.Cmp(right)
	}
	return strings.Compare(a, b)
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, value := range values {
		quoted[i] = strconv.Quote(value)
	}
	return strings.Join(quoted, ", ")
}

var (
	ncNamePattern   = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_.\-]*$`)
	namePattern     = regexp.MustCompile(`^[\p{L}_:][\p{L}\p{N}_.\-:]*$`)
	nmtokenPattern  = regexp.MustCompile(`^[\p{L}\p{N}_.\-:]+$`)
	languagePattern = regexp.MustCompile(`^[a-zA-Z]{1,8}(-[a-zA-Z0-9]{1,8})*$`)
	decimalPattern  = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
	datePattern     = regexp.MustCompile(`^(-?\d{4,}-\d{2}-\d{2})(Z|[+-]\d{2}:\d{2})?$`)
	dateTimePattern = regexp.MustCompile(`^(-?\d{4,}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`)
	timePattern     = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2})(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`)
	durationPattern = regexp.MustCompile(`^-?P(\d+Y)?(\d+M)?(\d+D)?(T(\d+H)?(\d+M)?(\d+(\.\d+)?S)?)?$`)
	hexPattern      = regexp.MustCompile(`^([0-9a-fA-F]{2})*$`)
)

type integerRange struct {
	min, max *big.Int
}

func bigInt(value string) *big.Int {
	parsed, _ := new(big.Int).SetString(value, 10)
	return parsed
}

var integerRanges = map[string]integerRange{
	"integer":            {},
	"long":               {bigInt("-9223372036854775808"), bigInt("9223372036854775807")},
	"int":                {bigInt("-2147483648"), bigInt("2147483647")},
	"short":              {bigInt("-32768"), bigInt("32767")},
	"byte":               {bigInt("-128"), bigInt("127")},
	"nonNegativeInteger": {bigInt("0"), nil},
	"positiveInteger":    {bigInt("1"), nil},
	"nonPositiveInteger": {nil, bigInt("0")},
	"negativeInteger":    {nil, bigInt("-1")},
	"unsignedLong":       {bigInt("0"), bigInt("18446744073709551615")},
	"unsignedInt":        {bigInt("0"), bigInt("4294967295")},
	"unsignedShort":      {bigInt("0"), bigInt("65535")},
	"unsignedByte":       {bigInt("0"), bigInt("255")},
}

// builtinCheckers maps builtin type names to lexical checks. A nil
// checker accepts any value.
var builtinCheckers = map[string]func(string) bool{
	"anySimpleType":    nil,
	"string":           nil,
	"normalizedString": func(v string) bool { return !strings.ContainsAny(v, "\t\n\r") },
	"token":            nil,
	"language":         languagePattern.MatchString,
	"Name":             namePattern.MatchString,
	"NCName":           ncNamePattern.MatchString,
	"ID":               ncNamePattern.MatchString,
	"IDREF":            ncNamePattern.MatchString,
	"ENTITY":           ncNamePattern.MatchString,
	"IDREFS":           func(v string) bool { return allFields(v, ncNamePattern.MatchString) },
	"NMTOKEN":          nmtokenPattern.MatchString,
	"NMTOKENS":         func(v string) bool { return allFields(v, nmtokenPattern.MatchString) },
	"QName": func(v string) bool {
		prefix, local := splitQName(v)
		return ncNamePattern.MatchString(local) && (prefix == "" || ncNamePattern.MatchString(prefix))
	},
	"anyURI": func(v string) bool {
		_, err := url.Parse(v)
		return err == nil
	},
	"boolean": func(v string) bool { return v == "true" || v == "false" || v == "1" || v == "0" },
	"decimal": decimalPattern.MatchString,
	"float":   isFloat,
	"double":  isFloat,
	"date": func(v string) bool {
		match := datePattern.FindStringSubmatch(v)
		return match != nil && validLayout("2006-01-02", strings.TrimPrefix(match[1], "-"))
	},
	"dateTime": func(v string) bool {
		match := dateTimePattern.FindStringSubmatch(v)
		return match != nil && validLayout("2006-01-02T15:04:05", strings.TrimPrefix(match[1], "-"))
	},
	"time": func(v string) bool {
		match := timePattern.FindStringSubmatch(v)
		return match != nil && validLayout("15:04:05", match[1])
	},
	"duration": func(v string) bool {
		return durationPattern.MatchString(v) && !strings.HasSuffix(v, "P") && !strings.HasSuffix(v, "T")
	},
	"hexBinary": hexPattern.MatchString,
	"base64Binary": func(v string) bool {
		_, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(v), ""))
		return err == nil
	},
}

func init() {
	for name := range integerRanges {
		builtinCheckers[name] = nil
	}
}

func allFields(value string, check func(string) bool) bool {
	fields := strings.Fields(value)
	return len(fields) > 0 && !slices.ContainsFunc(fields, func(field string) bool { return !check(field) })
}

func isFloat(value string) bool {
	switch value {
	case "INF", "+INF", "-INF", "NaN":
		return true
	}
	_, err := strconv.ParseFloat(value, 64)
	return err == nil && !strings.ContainsAny(strings.ToLower(value), "inx")
}

// validLayout checks calendar validity for layouts whose year may
// exceed four digits; only four-digit years are range checked.
func validLayout(layout, value string) bool {
	if len(value) != len(layout) {
		return true
	}
	_, err := time.Parse(layout, value)
	return err == nil
}

func checkBuiltin(name, value string) string {
	if name != "string" && name != "normalizedString" && name != "anySimpleType" {
		value = strings.Join(strings.Fields(value), " ")
	}
	if limits, ok := integerRanges[name]; ok {
		parsed, valid := new(big.Int).SetString(strings.TrimPrefix(value, "+"), 10)
		if !valid {
			return fmt.Sprintf("value %q is not a valid %s", value, name)
		}
		if limits.min != nil && parsed.Cmp(limits.min) < 0 || limits.max != nil && parsed.Cmp(limits.max) > 0 {
			return fmt.Sprintf("value %q is out of range for %s", value, name)
		}
		return ""
	}
	check := builtinCheckers[name]
	if check != nil && !check(value) {
		return fmt.Sprintf("value %q is not a valid %s", value, name)
	}
	return ""
}
