// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package formula

import (
	"maps"
	"sort"
)

// Matrix describes the axes of a multi-configuration build. Require holds
// settings axes, Options holds option axes.
type Matrix struct {
	Require map[string][]string
	Options map[string][]string
}

// cartesian returns the product of kvs with keys sorted alphabetically,
// built layer by layer. Each element maps key to one of its values.
func cartesian(kvs map[string][]string) []map[string]string {
	if len(kvs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(kvs))
	for k := range kvs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []map[string]string{{}}
	for _, k := range keys {
		values := kvs[k]
		next := make([]map[string]string, 0, len(result)*len(values))
		for _, prev := range result {
			for _, v := range values {
				m := maps.Clone(prev)
				m[k] = v
				next = append(next, m)
			}
		}
		result = next
	}
	return result
}

// Cell is one point of the matrix.
type Cell struct {
	Settings map[string]string
	Options  map[string]string
}

// Expand returns all cartesian product combinations of the matrix, settings
// varying slowest.
func (m *Matrix) Expand() []Cell {
	reqs := cartesian(m.Require)
	opts := cartesian(m.Options)
	switch {
	case len(reqs) == 0 && len(opts) == 0:
		return nil
	case len(reqs) == 0:
		reqs = []map[string]string{{}}
	case len(opts) == 0:
		opts = []map[string]string{{}}
	}
	cells := make([]Cell, 0, len(reqs)*len(opts))
	for _, r := range reqs {
		for _, o := range opts {
			cells = append(cells, Cell{Settings: maps.Clone(r), Options: maps.Clone(o)})
		}
	}
	return cells
}

// CombinationCount returns the total number of cartesian product combinations.
func (m *Matrix) CombinationCount() int {
	countPart := func(kvs map[string][]string) int {
		if len(kvs) == 0 {
			return 0
		}
		count := 1
		for _, v := range kvs {
			count *= len(v)
		}
		return count
	}

	requireCount := countPart(m.Require)
	optionsCount := countPart(m.Options)

	if requireCount == 0 {
		return optionsCount
	}
	if optionsCount == 0 {
		return requireCount
	}
	return requireCount * optionsCount
}

// String joins the values of each kind with "-" in key order, and settings
// with options using "|".
func (c Cell) String() string {
	join := func(m map[string]string) string {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s := ""
		for i, k := range keys {
			if i > 0 {
				s += "-"
			}
			s += m[k]
		}
		return s
	}
	r, o := join(c.Settings), join(c.Options)
	switch {
	case r == "":
		return o
	case o == "":
		return r
	}
	return r + "|" + o
}
