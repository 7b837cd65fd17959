// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package formula

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Canonical renderings of boolean option values.
const (
	True  = "True"
	False = "False"
)

// BoolDomain is the domain of a boolean option.
var BoolDomain = []string{True, False}

// Option is one declared build switch.
type Option struct {
	Name   string
	Domain []string // nil means any raw value
	Value  string
}

// Options is the option set of one build configuration, kept in
// declaration order.
type Options struct {
	opts []Option
}

// NewOptions returns an empty option set.
func NewOptions() *Options {
	return &Options{}
}

// Declare adds an option with its domain and default value.
func (o *Options) Declare(name string, domain []string, def string) error {
	if name == "" {
		return fmt.Errorf("option name is empty")
	}
	if o.Has(name) {
		return fmt.Errorf("option %q declared twice", name)
	}
	v, err := normalize(domain, def)
	if err != nil {
		return fmt.Errorf("option %q: default: %w", name, err)
	}
	o.opts = append(o.opts, Option{Name: name, Domain: slices.Clone(domain), Value: v})
	return nil
}

func (o *Options) index(name string) int {
	return slices.IndexFunc(o.opts, func(opt Option) bool { return opt.Name == name })
}

// Has reports whether name is declared and not removed.
func (o *Options) Has(name string) bool {
	return o.index(name) >= 0
}

// Get returns the current value of name.
func (o *Options) Get(name string) (string, bool) {
	if i := o.index(name); i >= 0 {
		return o.opts[i].Value, true
	}
	return "", false
}

// Bool returns the truth value of name. Absent options are false.
func (o *Options) Bool(name string) bool {
	v, ok := o.Get(name)
	if !ok {
		return false
	}
	b, _ := ParseBool(v)
	return b
}

// Set assigns value to a declared option.
func (o *Options) Set(name, value string) error {
	i := o.index(name)
	if i < 0 {
		return fmt.Errorf("option %q does not exist", name)
	}
	v, err := normalize(o.opts[i].Domain, value)
	if err != nil {
		return fmt.Errorf("option %q: %w", name, err)
	}
	o.opts[i].Value = v
	return nil
}

// Remove deletes name from the set. Removing an absent option is a no-op.
func (o *Options) Remove(name string) {
	if i := o.index(name); i >= 0 {
		o.opts = slices.Delete(o.opts, i, i+1)
	}
}

// Names returns the option names in declaration order.
func (o *Options) Names() []string {
	names := make([]string, len(o.opts))
	for i, opt := range o.opts {
		names[i] = opt.Name
	}
	return names
}

// All returns a copy of the options in declaration order.
func (o *Options) All() []Option {
	out := make([]Option, len(o.opts))
	for i, opt := range o.opts {
		opt.Domain = slices.Clone(opt.Domain)
		out[i] = opt
	}
	return out
}

// Values returns the option values keyed by name.
func (o *Options) Values() map[string]string {
	m := make(map[string]string, len(o.opts))
	for _, opt := range o.opts {
		m[opt.Name] = opt.Value
	}
	return m
}

// Clone returns a deep copy.
func (o *Options) Clone() *Options {
	return &Options{opts: o.All()}
}

// String renders the set as sorted "name=value" pairs joined by ",".
func (o *Options) String() string {
	pairs := make([]string, 0, len(o.opts))
	for _, opt := range o.opts {
		pairs = append(pairs, opt.Name+"="+opt.Value)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// IsBoolDomain reports whether domain is exactly {True, False}.
func IsBoolDomain(domain []string) bool {
	return len(domain) == 2 && slices.Contains(domain, True) && slices.Contains(domain, False)
}

// ParseBool parses the spellings accepted for boolean options.
func ParseBool(s string) (value, ok bool) {
	switch strings.ToLower(s) {
	case "true", "1", "on", "yes":
		return true, true
	case "false", "0", "off", "no":
		return false, true
	}
	return false, false
}

// FormatBool renders b as True or False.
func FormatBool(b bool) string {
	if b {
		return True
	}
	return False
}

func normalize(domain []string, value string) (string, error) {
	if domain == nil {
		return value, nil
	}
	if IsBoolDomain(domain) {
		b, ok := ParseBool(value)
		if !ok {
			return "", fmt.Errorf("%q is not a boolean", value)
		}
		return FormatBool(b), nil
	}
	if !slices.Contains(domain, value) {
		return "", fmt.Errorf("%q is not one of %v", value, domain)
	}
	return value, nil
}
