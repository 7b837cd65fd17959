// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recipe

import "testing"

func TestCheckRequiredVersion(t *testing.T) {
	tests := []struct {
		constraint string
		version    string
		ok         bool
	}{
		{">=1.0.0", "1.0.0", true},
		{">=1.0.0", "0.9.0", false},
		{">1.0.0", "1.0.0", false},
		{">1.0", "1.0.1", true},
		{"<=2.0.0", "2.0.0", true},
		{"<2.0.0", "2.0.0", false},
		{"==1.2.3", "1.2.3", true},
		{"1.2.3", "1.2.4", false},
		{">= 1.45.0", "1.0.0", false},
		{">=v1.0.0", "v1.0.0", true},
	}
	for _, tt := range tests {
		err := CheckRequiredVersion(tt.constraint, tt.version)
		if (err == nil) != tt.ok {
			t.Errorf("CheckRequiredVersion(%q, %q) = %v, want ok=%v", tt.constraint, tt.version, err, tt.ok)
		}
	}
}

func TestCheckRequiredVersionInvalid(t *testing.T) {
	if err := CheckRequiredVersion(">=banana", "1.0.0"); err == nil {
		t.Error("invalid constraint accepted")
	}
	if err := CheckRequiredVersion(">=1.0.0", ""); err == nil {
		t.Error("invalid tool version accepted")
	}
}
