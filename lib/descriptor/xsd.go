// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// This file compiles the subset of XML Schema that deployment
// descriptors use into an in-memory model. xsdcheck.go validates
// instance documents against it.

const unbounded = -1

// maxDerivationDepth bounds type derivation and group expansion so a
// cyclic schema cannot recurse forever.
const maxDerivationDepth = 32

type xsdSchema struct {
	elements        map[string]*xsdElement
	complexTypes    map[string]*xsdComplexType
	simpleTypes     map[string]*xsdSimpleType
	attributes      map[string]*xsdAttribute
	attributeGroups map[string]*xsdAttributeGroup
	groups          map[string]*xsdParticle
	builtins        map[string]*xsdSimpleType
}

type xsdElement struct {
	name     string
	ref      string
	typeName string
	complex  *xsdComplexType
	simple   *xsdSimpleType
}

type particleKind int

const (
	particleElement particleKind = iota
	particleSequence
	particleChoice
	particleAll
	particleAny
	particleGroupRef
)

type xsdParticle struct {
	kind     particleKind
	element  *xsdElement
	children []*xsdParticle
	ref      string
	min      int
	max      int
}

type xsdComplexType struct {
	name               string
	base               string
	extension          bool
	simpleContent      bool
	simpleRestriction  *xsdSimpleType
	content            *xsdParticle
	attributes         []*xsdAttribute
	attributeGroupRefs []string
	anyAttribute       bool
	mixed              bool
}

type xsdAttribute struct {
	name     string
	ref      string
	typeName string
	simple   *xsdSimpleType
	use      string
}

type xsdAttributeGroup struct {
	attributes   []*xsdAttribute
	refs         []string
	anyAttribute bool
}

type xsdSimpleType struct {
	name    string
	builtin string

	base       string
	inlineBase *xsdSimpleType

	listItem   string
	inlineItem *xsdSimpleType
	isList     bool

	unionMembers  []string
	inlineMembers []*xsdSimpleType
	isUnion       bool

	enumeration  []string
	patterns     []*regexp.Regexp
	length       *int
	minLength    *int
	maxLength    *int
	minInclusive string
	maxInclusive string
	minExclusive string
	maxExclusive string
}

// compileSchema builds the model from a parsed schema document. The
// returned problems describe constructs that are malformed or outside
// the supported subset.
func compileSchema(root *etree.Element) (*xsdSchema, []string) {
	schema := &xsdSchema{
		elements:        make(map[string]*xsdElement),
		complexTypes:    make(map[string]*xsdComplexType),
		simpleTypes:     make(map[string]*xsdSimpleType),
		attributes:      make(map[string]*xsdAttribute),
		attributeGroups: make(map[string]*xsdAttributeGroup),
		groups:          make(map[string]*xsdParticle),
		builtins:        make(map[string]*xsdSimpleType),
	}
	compiler := &schemaCompiler{}

	if root.Tag != "schema" {
		return nil, []string{fmt.Sprintf("root element is <%s>, want <schema>", root.Tag)}
	}

	for _, child := range root.ChildElements() {
		name := child.SelectAttrValue("name", "")
		switch child.Tag {
		case "element":
			schema.elements[name] = compiler.element(child)
		case "complexType":
			schema.complexTypes[name] = compiler.complexType(child)
		case "simpleType":
			schema.simpleTypes[name] = compiler.simpleType(child)
		case "attribute":
			schema.attributes[name] = compiler.attribute(child)
		case "attributeGroup":
			schema.attributeGroups[name] = compiler.attributeGroup(child)
		case "group":
			for _, member := range child.ChildElements() {
				if isModelGroup(member.Tag) {
					schema.groups[name] = compiler.particle(member)
				}
			}
		case "annotation", "notation":
		case "include", "import", "redefine", "override":
			compiler.problemf("<%s> is not supported by the builtin validator; use the xmllint validator", child.Tag)
		default:
			compiler.problemf("unexpected top-level <%s>", child.Tag)
		}
		if name == "" && needsName(child.Tag) {
			compiler.problemf("top-level <%s> has no name", child.Tag)
		}
	}

	if len(compiler.problems) == 0 {
		schema.check(compiler)
	}
	return schema, compiler.problems
}

func needsName(tag string) bool {
	switch tag {
	case "element", "complexType", "simpleType", "attribute", "attributeGroup", "group":
		return true
	}
	return false
}

func isModelGroup(tag string) bool {
	return tag == "sequence" || tag == "choice" || tag == "all"
}

type schemaCompiler struct {
	problems []string
}

func (c *schemaCompiler) problemf(format string, args ...any) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

func (c *schemaCompiler) occurs(e *etree.Element) (int, int) {
	minimum, maximum := 1, 1
	if value := e.SelectAttrValue("minOccurs", ""); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			c.problemf("invalid minOccurs %q", value)
		} else {
			minimum = parsed
		}
	}
	if value := e.SelectAttrValue("maxOccurs", ""); value != "" {
		if value == "unbounded" {
			maximum = unbounded
		} else if parsed, err := strconv.Atoi(value); err != nil || parsed < 0 {
			c.problemf("invalid maxOccurs %q", value)
		} else {
			maximum = parsed
		}
	}
	if maximum != unbounded && minimum > maximum {
		c.problemf("minOccurs %d exceeds maxOccurs %d", minimum, maximum)
	}
	return minimum, maximum
}

func (c *schemaCompiler) element(e *etree.Element) *xsdElement {
	declaration := &xsdElement{
		name:     e.SelectAttrValue("name", ""),
		ref:      e.SelectAttrValue("ref", ""),
		typeName: e.SelectAttrValue("type", ""),
	}
	for _, child := range e.ChildElements() {
		switch child.Tag {
		case "complexType":
			declaration.complex = c.complexType(child)
		case "simpleType":
			declaration.simple = c.simpleType(child)
		}
	}
	if declaration.name == "" && declaration.ref == "" {
		c.problemf("<element> needs a name or a ref")
	}
	return declaration
}

func (c *schemaCompiler) particle(e *etree.Element) *xsdParticle {
	minimum, maximum := c.occurs(e)
	particle := &xsdParticle{min: minimum, max: maximum}
	switch e.Tag {
	case "element":
		particle.kind = particleElement
		particle.element = c.element(e)
	case "any":
		particle.kind = particleAny
	case "group":
		particle.kind = particleGroupRef
		particle.ref = e.SelectAttrValue("ref", "")
	case "sequence", "choice", "all":
		switch e.Tag {
		case "sequence":
			particle.kind = particleSequence
		case "choice":
			particle.kind = particleChoice
		default:
			particle.kind = particleAll
		}
		for _, child := range e.ChildElements() {
			switch child.Tag {
			case "element", "any", "group", "sequence", "choice", "all":
				particle.children = append(particle.children, c.particle(child))
			case "annotation":
			default:
				c.problemf("unexpected <%s> inside <%s>", child.Tag, e.Tag)
			}
		}
	}
	return particle
}

func (c *schemaCompiler) complexType(e *etree.Element) *xsdComplexType {
	complexType := &xsdComplexType{
		name:  e.SelectAttrValue("name", ""),
		mixed: e.SelectAttrValue("mixed", "") == "true",
	}
	for _, child := range e.ChildElements() {
		switch child.Tag {
		case "complexContent":
			if child.SelectAttrValue("mixed", "") == "true" {
				complexType.mixed = true
			}
			for _, derivation := range child.ChildElements() {
				if derivation.Tag != "extension" && derivation.Tag != "restriction" {
					continue
				}
				complexType.base = derivation.SelectAttrValue("base", "")
				complexType.extension = derivation.Tag == "extension"
				c.complexBody(complexType, derivation)
			}
		case "simpleContent":
			complexType.simpleContent = true
			for _, derivation := range child.ChildElements() {
				if derivation.Tag != "extension" && derivation.Tag != "restriction" {
					continue
				}
				complexType.base = derivation.SelectAttrValue("base", "")
				complexType.extension = derivation.Tag == "extension"
				if derivation.Tag == "restriction" {
					restriction := &xsdSimpleType{}
					c.facets(restriction, derivation)
					complexType.simpleRestriction = restriction
				}
				c.complexBody(complexType, derivation)
			}
		default:
			c.complexBody(complexType, child)
		}
	}
	return complexType
}

// complexBody handles the children shared by complexType and its
// derivations. e is either one such child, or a derivation element
// whose children are processed.
func (c *schemaCompiler) complexBody(complexType *xsdComplexType, e *etree.Element) {
	members := []*etree.Element{e}
	if e.Tag == "extension" || e.Tag == "restriction" {
		members = e.ChildElements()
	}
	for _, member := range members {
		switch member.Tag {
		case "sequence", "choice", "all", "group":
			complexType.content = c.particle(member)
		case "attribute":
			complexType.attributes = append(complexType.attributes, c.attribute(member))
		case "attributeGroup":
			complexType.attributeGroupRefs = append(complexType.attributeGroupRefs, member.SelectAttrValue("ref", ""))
		case "anyAttribute":
			complexType.anyAttribute = true
		}
	}
}

func (c *schemaCompiler) attribute(e *etree.Element) *xsdAttribute {
	attribute := &xsdAttribute{
		name:     e.SelectAttrValue("name", ""),
		ref:      e.SelectAttrValue("ref", ""),
		typeName: e.SelectAttrValue("type", ""),
		use:      e.SelectAttrValue("use", "optional"),
	}
	for _, child := range e.ChildElements() {
		if child.Tag == "simpleType" {
			attribute.simple = c.simpleType(child)
		}
	}
	switch attribute.use {
	case "optional", "required", "prohibited":
	default:
		c.problemf("attribute %q has invalid use %q", attribute.name, attribute.use)
	}
	return attribute
}

func (c *schemaCompiler) attributeGroup(e *etree.Element) *xsdAttributeGroup {
	group := &xsdAttributeGroup{}
	for _, child := range e.ChildElements() {
		switch child.Tag {
		case "attribute":
			group.attributes = append(group.attributes, c.attribute(child))
		case "attributeGroup":
			group.refs = append(group.refs, child.SelectAttrValue("ref", ""))
		case "anyAttribute":
			group.anyAttribute = true
		}
	}
	return group
}

func (c *schemaCompiler) simpleType(e *etree.Element) *xsdSimpleType {
	simpleType := &xsdSimpleType{name: e.SelectAttrValue("name", "")}
	for _, child := range e.ChildElements() {
		switch child.Tag {
		case "restriction":
			simpleType.base = child.SelectAttrValue("base", "")
			for _, nested := range child.ChildElements() {
				if nested.Tag == "simpleType" {
					simpleType.inlineBase = c.simpleType(nested)
				}
			}
			if simpleType.base == "" && simpleType.inlineBase == nil {
				c.problemf("restriction of %q has no base type", simpleType.name)
			}
			c.facets(simpleType, child)
		case "list":
			simpleType.isList = true
			simpleType.listItem = child.SelectAttrValue("itemType", "")
			for _, nested := range child.ChildElements() {
				if nested.Tag == "simpleType" {
					simpleType.inlineItem = c.simpleType(nested)
				}
			}
		case "union":
			simpleType.isUnion = true
			simpleType.unionMembers = strings.Fields(child.SelectAttrValue("memberTypes", ""))
			for _, nested := range child.ChildElements() {
				if nested.Tag == "simpleType" {
					simpleType.inlineMembers = append(simpleType.inlineMembers, c.simpleType(nested))
				}
			}
		}
	}
	return simpleType
}

func (c *schemaCompiler) facets(simpleType *xsdSimpleType, restriction *etree.Element) {
	for _, facet := range restriction.ChildElements() {
		value := facet.SelectAttrValue("value", "")
		switch facet.Tag {
		case "enumeration":
			simpleType.enumeration = append(simpleType.enumeration, value)
		case "pattern":
			pattern, err := regexp.Compile("^(?:" + value + ")$")
			if err != nil {
				c.problemf("pattern %q is not supported: %v", value, err)
				continue
			}
			simpleType.patterns = append(simpleType.patterns, pattern)
		case "length":
			simpleType.length = c.nonNegative(facet.Tag, value)
		case "minLength":
			simpleType.minLength = c.nonNegative(facet.Tag, value)
		case "maxLength":
			simpleType.maxLength = c.nonNegative(facet.Tag, value)
		case "minInclusive":
			simpleType.minInclusive = value
		case "maxInclusive":
			simpleType.maxInclusive = value
		case "minExclusive":
			simpleType.minExclusive = value
		case "maxExclusive":
			simpleType.maxExclusive = value
		}
	}
}

func (c *schemaCompiler) nonNegative(facet, value string) *int {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		c.problemf("%s %q is not a non-negative integer", facet, value)
		return nil
	}
	return &parsed
}

// splitQName returns the prefix and local part of a qualified name.
func splitQName(qname string) (string, string) {
	if index := strings.IndexByte(qname, ':'); index >= 0 {
		return qname[:index], qname[index+1:]
	}
	return "", qname
}

func isSchemaPrefix(prefix string) bool {
	return prefix == "xs" || prefix == "xsd"
}

// lookupComplex resolves a complex type name.
func (s *xsdSchema) lookupComplex(qname string) *xsdComplexType {
	_, local := splitQName(qname)
	return s.complexTypes[local]
}

// lookupSimple resolves a simple type name to a user-defined or
// builtin type. Names with an xs or xsd prefix prefer builtins.
func (s *xsdSchema) lookupSimple(qname string) *xsdSimpleType {
	prefix, local := splitQName(qname)
	if isSchemaPrefix(prefix) {
		if builtin := s.builtin(local); builtin != nil {
			return builtin
		}
	}
	if simpleType, ok := s.simpleTypes[local]; ok {
		return simpleType
	}
	return s.builtin(local)
}

func (s *xsdSchema) builtin(local string) *xsdSimpleType {
	if _, ok := builtinCheckers[local]; !ok {
		return nil
	}
	if cached, ok := s.builtins[local]; ok {
		return cached
	}
	simpleType := &xsdSimpleType{name: local, builtin: local}
	s.builtins[local] = simpleType
	return simpleType
}

// isAnyType reports whether qname names xs:anyType.
func isAnyType(qname string) bool {
	_, local := splitQName(qname)
	return local == "anyType"
}

// check verifies that every referenced name resolves.
func (s *xsdSchema) check(c *schemaCompiler) {
	for name, element := range s.elements {
		s.checkElement(c, element, "element "+name)
	}
	for name, complexType := range s.complexTypes {
		s.checkComplex(c, complexType, "complexType "+name)
	}
	for name, simpleType := range s.simpleTypes {
		s.checkSimple(c, simpleType, "simpleType "+name)
	}
	for name, attribute := range s.attributes {
		s.checkAttribute(c, attribute, "attribute "+name)
	}
	for name, group := range s.attributeGroups {
		for _, attribute := range group.attributes {
			s.checkAttribute(c, attribute, "attributeGroup "+name)
		}
		for _, ref := range group.refs {
			if _, local := splitQName(ref); s.attributeGroups[local] == nil {
				c.problemf("attributeGroup %s: unknown attributeGroup %q", name, ref)
			}
		}
	}
	for name, group := range s.groups {
		s.checkParticle(c, group, "group "+name)
	}
}

func (s *xsdSchema) checkElement(c *schemaCompiler, element *xsdElement, context string) {
	if element.ref != "" {
		if _, local := splitQName(element.ref); s.elements[local] == nil {
			c.problemf("%s: unknown element ref %q", context, element.ref)
		}
		return
	}
	switch {
	case element.complex != nil:
		s.checkComplex(c, element.complex, context)
	case element.simple != nil:
		s.checkSimple(c, element.simple, context)
	case element.typeName != "" && !isAnyType(element.typeName):
		if s.lookupComplex(element.typeName) == nil && s.lookupSimple(element.typeName) == nil {
			c.problemf("%s: unknown type %q", context, element.typeName)
		}
	}
}

func (s *xsdSchema) checkComplex(c *schemaCompiler, complexType *xsdComplexType, context string) {
	if complexType.base != "" && !isAnyType(complexType.base) {
		if s.lookupComplex(complexType.base) == nil {
			if !complexType.simpleContent || s.lookupSimple(complexType.base) == nil {
				c.problemf("%s: unknown base type %q", context, complexType.base)
			}
		}
	}
	if complexType.content != nil {
		s.checkParticle(c, complexType.content, context)
	}
	for _, attribute := range complexType.attributes {
		s.checkAttribute(c, attribute, context)
	}
	for _, ref := range complexType.attributeGroupRefs {
		if _, local := splitQName(ref); s.attributeGroups[local] == nil {
			c.problemf("%s: unknown attributeGroup %q", context, ref)
		}
	}
}

func (s *xsdSchema) checkParticle(c *schemaCompiler, particle *xsdParticle, context string) {
	switch particle.kind {
	case particleElement:
		s.checkElement(c, particle.element, context)
	case particleGroupRef:
		if _, local := splitQName(particle.ref); s.groups[local] == nil {
			c.problemf("%s: unknown group %q", context, particle.ref)
		}
	default:
		for _, child := range particle.children {
			s.checkParticle(c, child, context)
		}
	}
}

func (s *xsdSchema) checkAttribute(c *schemaCompiler, attribute *xsdAttribute, context string) {
	if attribute.ref != "" {
		if _, local := splitQName(attribute.ref); s.attributes[local] == nil {
			c.problemf("%s: unknown attribute ref %q", context, attribute.ref)
		}
		return
	}
	if attribute.simple != nil {
		s.checkSimple(c, attribute.simple, context+" attribute "+attribute.name)
		return
	}
	if attribute.typeName != "" && s.lookupSimple(attribute.typeName) == nil {
		c.problemf("%s: attribute %q has unknown type %q", context, attribute.name, attribute.typeName)
	}
}

func (s *xsdSchema) checkSimple(c *schemaCompiler, simpleType *xsdSimpleType, context string) {
	reference := func(name string) {
		if name != "" && s.lookupSimple(name) == nil {
			c.problemf("%s: unknown simple type %q", context, name)
		}
	}
	reference(simpleType.base)
	reference(simpleType.listItem)
	for _, member := range simpleType.unionMembers {
		reference(member)
	}
	for _, nested := range []*xsdSimpleType{simpleType.inlineBase, simpleType.inlineItem} {
		if nested != nil {
			s.checkSimple(c, nested, context)
		}
	}
	for _, nested := range simpleType.inlineMembers {
		s.checkSimple(c, nested, context)
	}
}
