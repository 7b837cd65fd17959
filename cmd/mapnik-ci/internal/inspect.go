// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package internal

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/llarhub/mapnik/internal/driver"
	"github.com/llarhub/mapnik/internal/recipe"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [attribute...]",
	Short: "Print recipe attributes as JSON",
	Long: `Inspect evaluates the recipe descriptor and prints the requested
attributes as a JSON object. Without arguments every attribute is printed.`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = recipe.Attributes
	}
	out := make(map[string]any, len(args))
	for _, attr := range args {
		if !slices.Contains(recipe.Attributes, attr) {
			return fmt.Errorf("unknown attribute %q", attr)
		}
		v, err := driver.Inspect(attr, recipeFile)
		if err != nil {
			return err
		}
		out[attr] = v
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
