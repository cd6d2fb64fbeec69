//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets (all, unit, race, bench).
type Test mg.Namespace

// All runs every test, including the 100k-row bulk insert.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Unit runs tests in short mode, skipping the long bulk-insert runs.
func (Test) Unit() error {
	return sh.RunV(binGo, "test", "-short", "./...")
}

// Race runs all tests with the race detector. The editor and the default
// table lookup are the concurrent parts worth checking.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "-short", "./...")
}

// Bench runs the storage benchmarks.
func (Test) Bench() error {
	return sh.RunV(binGo, "test", "-run", "^$", "-bench", ".", "-benchmem", "./internal/sqlite/...")
}
