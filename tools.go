//go:build tools

package tools

// mockery v3 is used as an installed binary, so no import is needed here.
// Run: mockery (from the repository root) to regenerate the mocks listed
// in .mockery.yaml.
