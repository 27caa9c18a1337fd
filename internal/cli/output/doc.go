// Package output formats guardian CLI output.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: aligned tables for slices and single structs
//   - json.go, yaml.go: machine-readable output
//   - mark.go: colored pass/fail markers
//   - spinner.go: animation while waiting on a device
//
// Color is disabled automatically when stdout is not a terminal or
// NO_COLOR is set.
package output
