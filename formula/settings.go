// Copyright 2026 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// Setting keys understood by Settings.
const (
	SettingOS              = "os"
	SettingArch            = "arch"
	SettingCompiler        = "compiler"
	SettingCompilerVersion = "compiler.version"
	SettingCompilerLibcxx  = "compiler.libcxx"
	SettingCompilerRuntime = "compiler.runtime"
	SettingCompilerCppStd  = "compiler.cppstd"
	SettingBuildType       = "build_type"
)

var settingKeys = []string{
	SettingArch,
	SettingBuildType,
	SettingCompiler,
	SettingCompilerCppStd,
	SettingCompilerLibcxx,
	SettingCompilerRuntime,
	SettingCompilerVersion,
	SettingOS,
}

// Settings describes the host/target of one build configuration.
type Settings struct {
	OS              string `json:"os,omitempty"`
	Arch            string `json:"arch,omitempty"`
	Compiler        string `json:"compiler,omitempty"`
	CompilerVersion string `json:"compiler.version,omitempty"`
	CompilerLibcxx  string `json:"compiler.libcxx,omitempty"`
	CompilerRuntime string `json:"compiler.runtime,omitempty"`
	CompilerCppStd  string `json:"compiler.cppstd,omitempty"`
	BuildType       string `json:"build_type,omitempty"`
}

func (s *Settings) field(key string) *string {
	switch key {
	case SettingOS:
		return &s.OS
	case SettingArch:
		return &s.Arch
	case SettingCompiler:
		return &s.Compiler
	case SettingCompilerVersion:
		return &s.CompilerVersion
	case SettingCompilerLibcxx:
		return &s.CompilerLibcxx
	case SettingCompilerRuntime:
		return &s.CompilerRuntime
	case SettingCompilerCppStd:
		return &s.CompilerCppStd
	case SettingBuildType:
		return &s.BuildType
	}
	return nil
}

// Get returns the value of key, or "" when unset or unknown.
func (s Settings) Get(key string) string {
	if p := s.field(key); p != nil {
		return *p
	}
	return ""
}

// Set assigns value to key.
func (s *Settings) Set(key, value string) error {
	p := s.field(key)
	if p == nil {
		return fmt.Errorf("unknown setting %q", key)
	}
	*p = value
	return nil
}

// ParseSettings parses "key=value" pairs.
func ParseSettings(pairs []string) (Settings, error) {
	var s Settings
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return Settings{}, fmt.Errorf("invalid setting %q: expected key=value", kv)
		}
		if err := s.Set(strings.TrimSpace(k), strings.TrimSpace(v)); err != nil {
			return Settings{}, err
		}
	}
	return s, nil
}

// Pairs returns the non-empty settings as sorted "key=value" pairs.
func (s Settings) Pairs() []string {
	var pairs []string
	for _, k := range settingKeys {
		if v := s.Get(k); v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	return pairs
}

func (s Settings) String() string {
	return strings.Join(s.Pairs(), ",")
}

// IsMSVC reports whether the compiler belongs to the Microsoft family.
func (s Settings) IsMSVC() bool {
	return s.Compiler == "msvc" || s.Compiler == "Visual Studio"
}

// BinaryCompatible reports whether a binary built with o can be linked into
// a build with s. The language standard is not part of the binary interface.
func (s Settings) BinaryCompatible(o Settings) bool {
	a, b := s, o
	a.CompilerCppStd, b.CompilerCppStd = "", ""
	return a == b
}

// CheckMinCppStd fails when the configured language standard is set and
// lower than minStd. An unset standard always passes.
func CheckMinCppStd(s Settings, minStd int) error {
	if s.CompilerCppStd == "" {
		return nil
	}
	have, err := cppStdYear(s.CompilerCppStd)
	if err != nil {
		return err
	}
	want, _ := cppStdYear(strconv.Itoa(minStd))
	if have < want {
		return &UnsupportedCompilerStandardError{Have: s.CompilerCppStd, Min: minStd}
	}
	return nil
}

// cppStdYear maps "98", "gnu14", "20" to a comparable year.
func cppStdYear(std string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(std, "gnu"))
	if err != nil {
		return 0, fmt.Errorf("invalid compiler.cppstd %q", std)
	}
	if n >= 90 && n < 100 {
		return 1900 + n, nil
	}
	return 2000 + n, nil
}
