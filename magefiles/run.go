//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Validates the shaders and renders offscreen with the local oxy.toml.
func (Run) Headless() error {
	mg.Deps(Shaders.Validate)
	_, err := executeCmd("go", withArgs("run", "./cmd/oxy-deferred", "-profile"), withStream())
	return err
}
