// Package shared holds helpers used across packages. testutil captures slog
// output so tests can assert on what was logged.
package shared
