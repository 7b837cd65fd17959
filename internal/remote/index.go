// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/llarhub/mapnik/formula"
	"github.com/llarhub/mapnik/pkgs/mod/module"
	"github.com/llarhub/mapnik/pkgs/source"
)

// IndexFile is the name of the per-reference package index.
const IndexFile = "index.json"

// IndexEntry describes one package of a reference.
type IndexEntry struct {
	PackageID string           `json:"package_id"`
	Settings  formula.Settings `json:"settings"`
}

// Index returns the packages recorded for ref. A reference without an
// index has no packages.
func (c *Client) Index(ctx context.Context, ref module.Reference) ([]IndexEntry, error) {
	u, err := c.IndexURL(ref)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	default:
		return nil, statusError("index", resp)
	}
	var entries []IndexEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("index %s: %w", u, err)
	}
	return entries, nil
}

// addToIndex records e in the index of ref, replacing an entry with the
// same package id.
func (c *Client) addToIndex(ctx context.Context, ref module.Reference, e IndexEntry) error {
	entries, err := c.Index(ctx, ref)
	if err != nil {
		return err
	}
	entries = slices.DeleteFunc(entries, func(x IndexEntry) bool { return x.PackageID == e.PackageID })
	entries = append(entries, e)
	slices.SortFunc(entries, func(a, b IndexEntry) int { return strings.Compare(a.PackageID, b.PackageID) })

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	u, err := c.IndexURL(ref)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPut, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= 300:
		return statusError("index", resp)
	}
	return nil
}

// Find returns the id of a package of ref whose settings are binary
// compatible with s, or "" when the repository has none.
func (c *Client) Find(ctx context.Context, ref module.Reference, s formula.Settings) (string, error) {
	entries, err := c.Index(ctx, ref)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.Settings.BinaryCompatible(s) {
			return e.PackageID, nil
		}
	}
	return "", nil
}

// Download fetches package ref/packageID and unpacks it into dest,
// replacing dest only once the whole archive was unpacked.
func (c *Client) Download(ctx context.Context, ref module.Reference, packageID, dest string) error {
	u, err := c.PackageURL(ref, packageID)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	c.logger().Info("downloading package", "ref", ref.String(), "package_id", packageID, "url", u)
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return statusError("download", resp)
	}

	tmp, err := os.CreateTemp("", "mapnik-ci-pkg-*.zip")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	staging, err := os.MkdirTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)
	if err := source.Extract(tmp, source.Zip, staging, false); err != nil {
		return fmt.Errorf("unpack %s: %w", u, err)
	}
	if err := os.RemoveAll(dest); err != nil {
		return err
	}
	return os.Rename(staging, dest)
}
