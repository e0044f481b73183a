// Package shared holds code used across packages that belongs to no single layer.
//
// The testutil subpackage provides test helpers:
//
//	- LogCapture, an slog.Handler that records what a component logged
//	- WriteBars and WriteDaily, which lay out csv provider fixtures
//	- Instruments, a quick basket for tests
//
// testutil imports index only, so packages below index cannot use it.
package shared
