// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gnu orders version strings the way "sort -V" does.
//
// Recipe versions are not semver: "9d", "1.78.0" and "2.9.13" all appear as
// dependency pins, so ordering follows the Debian/GNU version comparison
// (dpkg verrevcmp): non-digit runs compare by character weight, digit runs
// by numeric value, and '~' sorts before everything including end of string.
package gnu

import "slices"

// Compare compares two version strings and returns a negative number when
// a < b, zero when they are equal and a positive number when a > b.
func Compare(a, b string) int {
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		for (i < len(a) && !isDigit(a[i])) || (j < len(b) && !isDigit(b[j])) {
			if d := order(at(a, i)) - order(at(b, j)); d != 0 {
				return d
			}
			i++
			j++
		}

		for i < len(a) && a[i] == '0' {
			i++
		}
		for j < len(b) && b[j] == '0' {
			j++
		}

		diff := 0
		for i < len(a) && j < len(b) && isDigit(a[i]) && isDigit(b[j]) {
			if diff == 0 {
				diff = int(a[i]) - int(b[j])
			}
			i++
			j++
		}
		switch {
		case i < len(a) && isDigit(a[i]):
			return 1
		case j < len(b) && isDigit(b[j]):
			return -1
		case diff != 0:
			return diff
		}
	}
	return 0
}

// Sort sorts versions in place in ascending GNU version order.
func Sort(versions []string) {
	slices.SortStableFunc(versions, Compare)
}

func at(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return 0
}

// order returns the weight of c inside a non-digit run:
// digits and end of string weigh 0, letters their ASCII value,
// '~' -1 and everything else its ASCII value + 256.
func order(c byte) int {
	switch {
	case isDigit(c), c == 0:
		return 0
	case isAlpha(c):
		return int(c)
	case c == '~':
		return -1
	}
	return int(c) + 256
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
