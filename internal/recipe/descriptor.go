// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package recipe loads the declarative part of a package recipe: identity,
// option schema and pinned sources.
package recipe

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/llarhub/mapnik/formula"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// DefaultFile is the recipe file name looked up in a recipe directory.
const DefaultFile = "recipe.hcl"

// Descriptor is the typed record of a recipe file.
type Descriptor struct {
	Path string // absolute path of the recipe file

	Name            string
	Description     string
	License         string
	Topics          []string
	Homepage        string
	URL             string
	RequiredVersion string
	Settings        []string
	ExportsSources  []string

	// Options are the declared options in file order; Value is the default.
	Options []formula.Option
}

// hclFile is the top-level structure of a recipe file for decoding.
type hclFile struct {
	Name            string       `hcl:"name"`
	Description     string       `hcl:"description,optional"`
	License         string       `hcl:"license,optional"`
	Topics          []string     `hcl:"topics,optional"`
	Homepage        string       `hcl:"homepage,optional"`
	URL             string       `hcl:"url,optional"`
	RequiredVersion string       `hcl:"required_version,optional"`
	Settings        []string     `hcl:"settings,optional"`
	ExportsSources  []string     `hcl:"exports_sources,optional"`
	Options         []*hclOption `hcl:"option,block"`
}

type hclOption struct {
	Name    string    `hcl:"name,label"`
	Values  cty.Value `hcl:"values,optional"`
	Default cty.Value `hcl:"default"`
}

var nameRE = regexp.MustCompile(`^[a-z0-9_][a-z0-9_+.-]*$`)

// Load parses and validates the recipe file at path.
// Any failure is reported as *formula.InspectionError.
func Load(path string) (*Descriptor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &formula.InspectionError{Path: path, Err: err}
	}
	d, err := load(abs)
	if err != nil {
		return nil, &formula.InspectionError{Path: abs, Err: err}
	}
	return d, nil
}

func load(path string) (*Descriptor, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse recipe: %w", diags)
	}
	var f hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &f); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode recipe: %w", diags)
	}

	if !nameRE.MatchString(f.Name) {
		return nil, fmt.Errorf("invalid package name %q", f.Name)
	}
	if f.RequiredVersion != "" {
		if err := CheckRequiredVersion(f.RequiredVersion, ToolVersion); err != nil {
			return nil, err
		}
	}

	d := &Descriptor{
		Path:            path,
		Name:            f.Name,
		Description:     f.Description,
		License:         f.License,
		Topics:          f.Topics,
		Homepage:        f.Homepage,
		URL:             f.URL,
		RequiredVersion: f.RequiredVersion,
		Settings:        f.Settings,
		ExportsSources:  f.ExportsSources,
	}
	// Declaring into a scratch set enforces unique names and defaults
	// inside their domain.
	check := formula.NewOptions()
	for _, o := range f.Options {
		domain, err := domainOf(o.Values)
		if err != nil {
			return nil, fmt.Errorf("option %q: values: %w", o.Name, err)
		}
		def, err := stringOf(o.Default)
		if err != nil {
			return nil, fmt.Errorf("option %q: default: %w", o.Name, err)
		}
		if err := check.Declare(o.Name, domain, def); err != nil {
			return nil, err
		}
	}
	d.Options = check.All()
	return d, nil
}

// Dir returns the directory holding the recipe file.
func (d *Descriptor) Dir() string {
	return filepath.Dir(d.Path)
}

// NewOptions returns a fresh option set holding the default values.
func (d *Descriptor) NewOptions() *formula.Options {
	o := formula.NewOptions()
	for _, opt := range d.Options {
		// validated by Load
		_ = o.Declare(opt.Name, opt.Domain, opt.Value)
	}
	return o
}

// HasOption reports whether name is a declared option.
func (d *Descriptor) HasOption(name string) bool {
	return slices.ContainsFunc(d.Options, func(o formula.Option) bool { return o.Name == name })
}

// Attributes lists the names Attribute answers, in declaration order.
var Attributes = []string{
	"name", "description", "license", "topics", "homepage", "url",
	"required_version", "settings", "options", "default_options",
}

// Attribute returns the value of a named recipe attribute.
func (d *Descriptor) Attribute(name string) (any, bool) {
	switch name {
	case "name":
		return d.Name, true
	case "description":
		return d.Description, true
	case "license":
		return d.License, true
	case "topics":
		return slices.Clone(d.Topics), true
	case "homepage":
		return d.Homepage, true
	case "url":
		return d.URL, true
	case "required_version":
		return d.RequiredVersion, true
	case "settings":
		return slices.Clone(d.Settings), true
	case "options":
		m := make(map[string][]string, len(d.Options))
		for _, o := range d.Options {
			if o.Domain == nil {
				m[o.Name] = []string{"ANY"}
				continue
			}
			m[o.Name] = slices.Clone(o.Domain)
		}
		return m, true
	case "default_options":
		m := make(map[string]string, len(d.Options))
		for _, o := range d.Options {
			m[o.Name] = o.Value
		}
		return m, true
	}
	return nil, false
}

func absent(v cty.Value) bool {
	return v.Type() == cty.NilType || v.IsNull()
}

// domainOf converts an option "values" list. An absent list means any
// value; a list of exactly true and false is the boolean domain.
func domainOf(v cty.Value) ([]string, error) {
	if absent(v) {
		return nil, nil
	}
	ty := v.Type()
	if !ty.IsListType() && !ty.IsTupleType() && !ty.IsSetType() {
		return nil, fmt.Errorf("expected a list, got %s", ty.FriendlyName())
	}
	var (
		domain []string
		bools  = 0
	)
	for _, el := range v.AsValueSlice() {
		if el.Type() == cty.Bool {
			bools++
		}
		s, err := stringOf(el)
		if err != nil {
			return nil, err
		}
		domain = append(domain, s)
	}
	if bools == len(domain) && bools > 0 {
		return canonicalBools(domain)
	}
	if len(domain) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return domain, nil
}

func canonicalBools(values []string) ([]string, error) {
	var seen [2]bool
	for _, s := range values {
		b, _ := formula.ParseBool(s)
		if b {
			seen[0] = true
		} else {
			seen[1] = true
		}
	}
	if !seen[0] || !seen[1] {
		return nil, fmt.Errorf("boolean options must allow both true and false")
	}
	return slices.Clone(formula.BoolDomain), nil
}

func stringOf(v cty.Value) (string, error) {
	if absent(v) {
		return "", fmt.Errorf("value is null")
	}
	if !v.IsWhollyKnown() {
		return "", fmt.Errorf("value is not known")
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	return s.AsString(), nil
}
