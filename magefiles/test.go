//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs the unit tests; GPU tests skip themselves.
func (Test) Unit() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs every test including the ones that need a real adapter.
func (Test) GPU() error {
	_, err := executeCmd("go", withArgs("test", "./engine/renderer/..."), withEnv("OXY_GPU_TESTS=1"), withStream())
	return err
}

// Runs the race detector over the packages with goroutines.
func (Test) Race() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./engine", "./engine/renderer/shader/..."), withStream())
	return err
}
