// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package remote publishes binary packages to an HTTP package repository
// and fetches them back.
//
// Packages are stored as zip archives at <base>/<name>/<version>/<id>.zip
// and written with authenticated PUT requests. <base>/<name>/<version>/
// index.json lists the settings of every package of a reference.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/llarhub/mapnik/internal/build"
	"github.com/llarhub/mapnik/pkgs/mod/module"
)

// ErrUnauthorized is returned when the repository rejects the credentials.
var ErrUnauthorized = errors.New("remote: unauthorized")

// Client talks to one package repository.
type Client struct {
	BaseURL  string
	Username string
	Password string

	HTTPClient *http.Client
	Logger     hclog.Logger
}

var defaultHTTPClient = &http.Client{Timeout: 30 * time.Minute}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return defaultHTTPClient
}

func (c *Client) logger() hclog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return hclog.NewNullLogger()
}

// PackageURL returns the location of a package archive.
func (c *Client) PackageURL(ref module.Reference, packageID string) (string, error) {
	return c.refURL(ref, packageID+".zip")
}

// IndexURL returns the location of the package index of ref.
func (c *Client) IndexURL(ref module.Reference) (string, error) {
	return c.refURL(ref, IndexFile)
}

func (c *Client) refURL(ref module.Reference, file string) (string, error) {
	if err := ref.Validate(); err != nil {
		return "", err
	}
	base, err := url.Parse(strings.TrimRight(c.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid remote url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return "", fmt.Errorf("invalid remote url %q: scheme must be http or https", c.BaseURL)
	}
	return base.JoinPath(ref.Name, ref.Version, file).String(), nil
}

func (c *Client) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
	return req, nil
}

// CheckCredentials verifies that the repository accepts the configured
// credentials.
func (c *Client) CheckCredentials(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodHead, strings.TrimRight(c.BaseURL, "/")+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("check credentials: %w", err)
	}
	resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= 400:
		return fmt.Errorf("check credentials: unexpected status: %d", resp.StatusCode)
	}
	return nil
}

// Exists reports whether the package is already in the repository.
func (c *Client) Exists(ctx context.Context, ref module.Reference, packageID string) (bool, error) {
	u, err := c.PackageURL(ref, packageID)
	if err != nil {
		return false, err
	}
	req, err := c.newRequest(ctx, http.MethodHead, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, ErrUnauthorized
	}
	return false, fmt.Errorf("exists: unexpected status: %d", resp.StatusCode)
}

// Upload packs packageDir, stores it as the package ref/packageID and
// records its settings in the index of ref.
func (c *Client) Upload(ctx context.Context, ref module.Reference, packageID, packageDir string) error {
	u, err := c.PackageURL(ref, packageID)
	if err != nil {
		return err
	}
	info, err := build.ReadInfo(packageDir)
	if err != nil {
		return fmt.Errorf("reading package info: %w", err)
	}

	tmp, err := os.CreateTemp("", "mapnik-ci-pkg-*.zip")
	if err != nil {
		return err
	}
	tmp.Close()
	defer os.Remove(tmp.Name())
	if err := Pack(packageDir, tmp.Name()); err != nil {
		return fmt.Errorf("pack %s: %w", packageDir, err)
	}

	f, err := os.Open(tmp.Name())
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPut, u, f)
	if err != nil {
		return err
	}
	req.ContentLength = fi.Size()
	req.Header.Set("Content-Type", "application/zip")

	c.logger().Info("uploading package", "ref", ref.String(), "package_id", packageID, "url", u, "size", fi.Size())
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= 300:
		return statusError("upload", resp)
	}
	return c.addToIndex(ctx, ref, IndexEntry{PackageID: packageID, Settings: info.Settings})
}

func statusError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: unexpected status: %d: %s", op, resp.StatusCode, strings.TrimSpace(string(msg)))
}
