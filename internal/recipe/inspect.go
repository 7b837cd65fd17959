// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recipe

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/llarhub/mapnik/formula"
)

// chdir switches the working directory to dir and returns a function that
// switches it back.
func chdir(dir string) (restore func() error, err error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if err := os.Chdir(dir); err != nil {
		return nil, err
	}
	return func() error { return os.Chdir(cwd) }, nil
}

// Inspect loads the recipe at recipePath from inside its own directory and
// returns the value of attribute. Unknown attributes yield (nil, nil).
// The working directory is restored before Inspect returns, whether or not
// loading succeeded.
func Inspect(attribute, recipePath string) (value any, err error) {
	dir := filepath.Dir(recipePath)
	restore, err := chdir(dir)
	if err != nil {
		return nil, &formula.InspectionError{Path: recipePath, Attribute: attribute, Err: err}
	}
	defer func() {
		if rerr := restore(); rerr != nil && err == nil {
			err = fmt.Errorf("restore working directory: %w", rerr)
		}
	}()

	d, err := Load(filepath.Base(recipePath))
	if err != nil {
		return nil, err
	}
	value, _ = d.Attribute(attribute)
	return value, nil
}
