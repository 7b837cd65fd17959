// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "github.com/llarhub/mapnik/cmd/mapnik-ci/internal"

func main() {
	internal.Execute()
}
