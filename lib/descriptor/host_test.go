// Copyright 2026 The Hostlaunch Authors
// SPDX-License-Identifier: Apache-2.0

package descriptor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"pgregory.net/rapid"
)

func writeDescriptor(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "descriptor.xml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSelectHost_SingleHost(t *testing.T) {
	t.Parallel()

	path := writeDescriptor(t, `<Hosts><host name="a" version="1.0"/></Hosts>`)

	record, err := SelectHost(path, "a")
	if err != nil {
		t.Fatalf("SelectHost(a): %v", err)
	}
	if len(record) != 2 || record["name"] != "a" || record["version"] != "1.0" {
		t.Errorf("record = %v, want {name:a version:1.0}", record)
	}

	_, err = SelectHost(path, "b")
	var notFound *HostNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("SelectHost(b) error = %v, want *HostNotFoundError", err)
	}
	if notFound.Host != "b" || !slices.Equal(notFound.Known, []string{"a"}) {
		t.Errorf("HostNotFoundError = %+v, want host b known [a]", notFound)
	}
}

func TestSelectHost_DirectChildrenWinOverNested(t *testing.T) {
	t.Parallel()

	path := writeDescriptor(t, `
<Hosts>
  <group>
    <host name="web" version="nested"/>
  </group>
  <host name="web" version="direct"/>
</Hosts>`)

	record, err := SelectHost(path, "web")
	if err != nil {
		t.Fatalf("SelectHost: %v", err)
	}
	if version, _ := record.Version(); version != "direct" {
		t.Errorf("version = %q, want direct", version)
	}
}

func TestSelectHost_NestedFallback(t *testing.T) {
	t.Parallel()

	path := writeDescriptor(t, `
<Hosts>
  <host name="db" version="2"/>
  <site>
    <rack>
      <host name="web" version="3" port="8080"/>
    </rack>
  </site>
</Hosts>`)

	record, err := SelectHost(path, "web")
	if err != nil {
		t.Fatalf("SelectHost: %v", err)
	}
	if record.Name() != "web" || record["port"] != "8080" {
		t.Errorf("record = %v", record)
	}
}

func TestSelectHost_FirstMatchInDocumentOrder(t *testing.T) {
	t.Parallel()

	path := writeDescriptor(t, `<Hosts><host name="x" version="1"/><host name="x" version="2"/></Hosts>`)
	record, err := SelectHost(path, "x")
	if err != nil {
		t.Fatalf("SelectHost: %v", err)
	}
	if record["version"] != "1" {
		t.Errorf("version = %q, want 1", record["version"])
	}
}

func TestSelectHost_KnownNamesDeduplicated(t *testing.T) {
	t.Parallel()

	path := writeDescriptor(t, `
<Hosts>
  <host name="b"/>
  <host name="a"/>
  <host/>
  <host name="b"/>
  <nested><host name="c"/><host name="a"/></nested>
</Hosts>`)

	_, err := SelectHost(path, "missing")
	var notFound *HostNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %v, want *HostNotFoundError", err)
	}
	want := []string{"b", "a", "c"}
	if !slices.Equal(notFound.Known, want) {
		t.Errorf("Known = %v, want %v", notFound.Known, want)
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("error %q does not name the requested host", err)
	}
}

func TestSelectHost_ParseError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"malformed", `<Hosts><host name=a/></Hosts>`},
		{"empty", ``},
		{"second root element", `<Hosts><host name="a" version="1.0"/></Hosts><Other/>`},
		{"text after root", `<Hosts><host name="a" version="1.0"/></Hosts>trailing`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			path := writeDescriptor(t, test.content)
			_, err := SelectHost(path, "a")
			var parseError *ParseError
			if !errors.As(err, &parseError) {
				t.Fatalf("error = %v, want *ParseError", err)
			}
			if parseError.Path != path {
				t.Errorf("ParseError.Path = %q, want %q", parseError.Path, path)
			}
		})
	}
}

func TestSelectHost_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := SelectHost(filepath.Join(t.TempDir(), "absent.xml"), "a")
	var parseError *ParseError
	if !errors.As(err, &parseError) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestHostRecord_RequireVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		record  HostRecord
		want    string
		wantErr bool
	}{
		{"present", HostRecord{"name": "a", "version": "v1.2"}, "v1.2", false},
		{"absent", HostRecord{"name": "a"}, "", true},
		{"empty", HostRecord{"name": "a", "version": ""}, "", true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			version, err := test.record.RequireVersion()
			if test.wantErr {
				if !errors.Is(err, ErrNoVersion) {
					t.Errorf("error = %v, want ErrNoVersion", err)
				}
				return
			}
			if err != nil || version != test.want {
				t.Errorf("RequireVersion = %q, %v, want %q", version, err, test.want)
			}
		})
	}
}

// TestSelectHost_KnownNamesProperty checks, over generated documents,
// that an unknown host reports every distinct non-empty name exactly
// once in first-seen order.
func TestSelectHost_KnownNamesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOf(rapid.SampledFrom([]string{"", "a", "b", "c", "web", "db"})).Draw(t, "names")
		nested := rapid.SliceOfN(rapid.Bool(), len(names), len(names)).Draw(t, "nested")

		document := etree.NewDocument()
		root := document.CreateElement("Hosts")
		group := root.CreateElement("group")
		for i, name := range names {
			parent := root
			if nested[i] {
				parent = group
			}
			host := parent.CreateElement("host")
			if name != "" {
				host.CreateAttr("name", name)
			}
		}

		_, err := selectHost(root, "absent")
		var notFound *HostNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("error = %v, want *HostNotFoundError", err)
		}

		// Direct children are scanned before the nested group.
		var want []string
		seen := make(map[string]bool)
		for _, pass := range []bool{false, true} {
			for i, name := range names {
				if nested[i] != pass || name == "" || seen[name] {
					continue
				}
				seen[name] = true
				want = append(want, name)
			}
		}
		if !slices.Equal(notFound.Known, want) {
			t.Fatalf("Known = %v, want %v", notFound.Known, want)
		}
	})
}

func ExampleHostNotFoundError() {
	err := &HostNotFoundError{Host: "b", Known: []string{"a"}}
	fmt.Println(err.Known)
	// Output: [a]
}
