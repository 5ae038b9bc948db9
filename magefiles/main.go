//go:build mage

// Package main provides development automation.
package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Dev groups commands for local development.
type Dev mg.Namespace

// Checks runs the linters and the full test suite.
func (Dev) Checks() error {
	if err := sh.RunV("golangci-lint", "run"); err != nil {
		return fmt.Errorf("failed to lint: %w", err)
	}

	return sh.RunV("go", "test", "-race", "./...")
}

// Release tags a new version and pushes it.
func (Dev) Release() error {
	data, err := os.ReadFile("version.txt")
	if err != nil {
		return fmt.Errorf("failed to read version file: %w", err)
	}

	version := strings.TrimSpace(string(data))
	if !regexp.MustCompile(`^v([0-9]+).([0-9]+).([0-9]+)$`).MatchString(version) {
		return fmt.Errorf("invalid version format: %s", version)
	}

	if err := sh.Run("git", "tag", version); err != nil {
		return fmt.Errorf("failed to tag version: %w", err)
	}

	if err := sh.Run("git", "push", "origin", version); err != nil {
		return fmt.Errorf("failed to push version tag: %w", err)
	}

	return nil
}
