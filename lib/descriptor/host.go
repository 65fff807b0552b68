// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// HostRecord holds the attributes of a <host> element.
type HostRecord map[string]string

// Name returns the host's name attribute.
func (r HostRecord) Name() string {
	return r["name"]
}

// Version returns the version attribute. An empty attribute counts as
// absent.
func (r HostRecord) Version() (string, bool) {
	version := r["version"]
	return version, version != ""
}

// RequireVersion returns the version or ErrNoVersion.
func (r HostRecord) RequireVersion() (string, error) {
	version, ok := r.Version()
	if !ok {
		return "", ErrNoVersion
	}
	return version, nil
}

// SelectHost reads the descriptor at path and returns the attributes
// of the host named hostName.
//
// <host> elements that are direct children of the root are searched
// first. Only when none of them matches are <host> elements at any
// depth searched. Within a scan the first match in document order
// wins. Elements are matched by local name, ignoring namespace
// prefixes.
func SelectHost(path, hostName string) (HostRecord, error) {
	document := etree.NewDocument()
	if err := document.ReadFromFile(path); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	root, err := documentRoot(document)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return selectHost(root, hostName)
}

// documentRoot returns the single root element of document. Content
// after the root, another element or non-blank text, makes the
// document malformed.
func documentRoot(document *etree.Document) (*etree.Element, error) {
	var root *etree.Element
	for _, token := range document.Child {
		switch token := token.(type) {
		case *etree.Element:
			if root != nil {
				return nil, fmt.Errorf("junk after document element: <%s>", token.FullTag())
			}
			root = token
		case *etree.CharData:
			if strings.TrimSpace(token.Data) != "" {
				return nil, errors.New("text outside the document element")
			}
		}
	}
	if root == nil {
		return nil, errors.New("document has no root element")
	}
	return root, nil
}

func selectHost(root *etree.Element, hostName string) (HostRecord, error) {
	var known []string
	seen := make(map[string]bool)
	observe := func(element *etree.Element) bool {
		name := element.SelectAttrValue("name", "")
		if name != "" && !seen[name] {
			seen[name] = true
			known = append(known, name)
		}
		return name == hostName
	}

	for _, child := range root.ChildElements() {
		if child.Tag == "host" && observe(child) {
			return attributes(child), nil
		}
	}

	var match *etree.Element
	walkDescendants(root, func(element *etree.Element) bool {
		if element.Tag == "host" && observe(element) {
			match = element
			return false
		}
		return true
	})
	if match != nil {
		return attributes(match), nil
	}

	return nil, &HostNotFoundError{Host: hostName, Known: known}
}

// walkDescendants visits every element below root in document order
// until visit returns false.
func walkDescendants(root *etree.Element, visit func(*etree.Element) bool) bool {
	for _, child := range root.ChildElements() {
		if !visit(child) {
			return false
		}
		if !walkDescendants(child, visit) {
			return false
		}
	}
	return true
}

func attributes(element *etree.Element) HostRecord {
	record := make(HostRecord, len(element.Attr))
	for _, attr := range element.Attr {
		record[attr.FullKey()] = attr.Value
	}
	return record
}
