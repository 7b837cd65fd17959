// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packager

import (
	"runtime"
	"strings"

	"github.com/llarhub/mapnik/formula"
)

// Config is the CI environment of a packager run. It is read once at
// start up and passed by value.
type Config struct {
	GCCVersions        []string
	ClangVersions      []string
	AppleClangVersions []string
	MSVCVersions       []string
	Archs              []string
	BuildTypes         []string
	CppStds            []string

	// OS is the target operating system setting.
	OS string

	// Upload is the base URL of the package repository; empty disables
	// uploads.
	Upload   string
	Username string
	Password string

	UseDocker   bool
	DockerImage string
}

// ConfigFromEnv reads the CONAN_* variables through getenv.
func ConfigFromEnv(getenv func(string) string) Config {
	cfg := Config{
		GCCVersions:        list(getenv("CONAN_GCC_VERSIONS")),
		ClangVersions:      list(getenv("CONAN_CLANG_VERSIONS")),
		AppleClangVersions: list(getenv("CONAN_APPLE_CLANG_VERSIONS")),
		MSVCVersions:       list(getenv("CONAN_MSVC_VERSIONS")),
		Archs:              list(getenv("CONAN_ARCHS")),
		BuildTypes:         list(getenv("CONAN_BUILD_TYPES")),
		CppStds:            list(getenv("CONAN_CPPSTD")),
		OS:                 strings.TrimSpace(getenv("CONAN_OS")),
		Upload:             strings.TrimSpace(getenv("CONAN_UPLOAD")),
		Username:           getenv("CONAN_LOGIN_USERNAME"),
		Password:           getenv("CONAN_PASSWORD"),
		DockerImage:        strings.TrimSpace(getenv("CONAN_DOCKER_IMAGE")),
	}
	cfg.UseDocker, _ = formula.ParseBool(getenv("CONAN_USE_DOCKER"))
	if cfg.DockerImage != "" {
		cfg.UseDocker = true
	}
	if len(cfg.Archs) == 0 {
		cfg.Archs = []string{"x86_64"}
	}
	if len(cfg.BuildTypes) == 0 {
		cfg.BuildTypes = []string{"Release", "Debug"}
	}
	if cfg.OS == "" {
		cfg.OS = HostOS()
	}
	return cfg
}

// HostOS returns the os setting of the running platform.
func HostOS() string {
	switch runtime.GOOS {
	case "darwin":
		return "Macos"
	case "windows":
		return "Windows"
	case "freebsd":
		return "FreeBSD"
	}
	return "Linux"
}

// list splits a comma separated variable, dropping empty items.
func list(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
