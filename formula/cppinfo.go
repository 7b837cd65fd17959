// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package formula

import (
	"fmt"
	"slices"
)

// Consumer-facing property names.
const (
	PropCMakeFileName   = "cmake_file_name"
	PropCMakeTargetName = "cmake_target_name"
)

// Component is an independently linkable unit of an installed package.
// A component with empty LibDirs carries headers only.
type Component struct {
	Name          string            `json:"name"`
	Libs          []string          `json:"libs"`
	LibDirs       []string          `json:"libdirs"`
	FrameworkDirs []string          `json:"frameworkdirs"`
	Requires      []string          `json:"requires"`
	Properties    map[string]string `json:"properties,omitempty"`
	Names         map[string]string `json:"names,omitempty"` // generator -> name
}

// SetProperty sets a consumer-facing property on the component.
func (c *Component) SetProperty(key, value string) {
	if c.Properties == nil {
		c.Properties = map[string]string{}
	}
	c.Properties[key] = value
}

// SetName sets the name the component takes in the given generator.
func (c *Component) SetName(generator, name string) {
	if c.Names == nil {
		c.Names = map[string]string{}
	}
	c.Names[generator] = name
}

// CppInfo is the metadata published for consumers of a package.
type CppInfo struct {
	Properties map[string]string `json:"properties,omitempty"`
	Components []*Component      `json:"components"`
}

// NewCppInfo returns an empty CppInfo.
func NewCppInfo() *CppInfo {
	return &CppInfo{Properties: map[string]string{}}
}

// SetProperty sets a package-wide consumer property.
func (ci *CppInfo) SetProperty(key, value string) {
	if ci.Properties == nil {
		ci.Properties = map[string]string{}
	}
	ci.Properties[key] = value
}

// Component returns the component called name, creating it with the default
// "lib" and "Frameworks" directories on first use.
func (ci *CppInfo) Component(name string) *Component {
	if c := ci.Lookup(name); c != nil {
		return c
	}
	c := &Component{
		Name:          name,
		Libs:          []string{},
		LibDirs:       []string{"lib"},
		FrameworkDirs: []string{"Frameworks"},
		Requires:      []string{},
	}
	ci.Components = append(ci.Components, c)
	return c
}

// Lookup returns the component called name or nil.
func (ci *CppInfo) Lookup(name string) *Component {
	for _, c := range ci.Components {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Check verifies that every requires edge points at a declared component
// and that the component graph has no cycle.
func (ci *CppInfo) Check() error {
	for _, c := range ci.Components {
		for _, r := range c.Requires {
			if ci.Lookup(r) == nil {
				return fmt.Errorf("component %q requires unknown component %q", c.Name, r)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(ci.Components))
	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("component cycle: %v", append(path, name))
		case done:
			return nil
		}
		state[name] = visiting
		for _, r := range ci.Lookup(name).Requires {
			if err := visit(r, append(slices.Clip(path), name)); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}
	for _, c := range ci.Components {
		if err := visit(c.Name, nil); err != nil {
			return err
		}
	}
	return nil
}
