//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target - build the binary
var Default = Build

const binary = "bin/kerntest"

// Build builds the kerntest binary
func Build() error {
	if err := os.MkdirAll("bin", 0o755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-o", binary, "./cmd/kerntest")
}

// Test runs the unit tests
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Lint runs go vet
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Kernel builds the test image with the kernel's own build (make).
func Kernel() error {
	return sh.RunV("make")
}

// Check boots the kernel image and writes an XML report to build/kernel-tests.xml
func Check() error {
	mg.Deps(Build, Kernel)
	if err := os.MkdirAll("build", 0o755); err != nil {
		return err
	}
	err := sh.RunV(binary, "-o", "build/kernel-tests.xml")
	if code := sh.ExitStatus(err); code != 0 {
		return mg.Fatalf(code, "kernel tests exited with status %d", code)
	}
	fmt.Println("kernel tests passed")
	return nil
}

// Clean removes build artifacts
func Clean() error {
	for _, p := range []string{"bin/kerntest", "build/kernel-tests.xml"} {
		if err := sh.Rm(p); err != nil {
			return err
		}
	}
	return nil
}
