// Package confloader provides the configuration loading mechanism.
//
// It uses koanf to merge configuration from multiple sources:
//
//   - YAML configuration file
//   - Environment variables (GUARDIAN_ prefix)
//   - Maps (tests and flag overrides)
//
// Priority (highest to lowest):
//
//  1. Maps loaded after Load
//  2. Environment variables
//  3. Configuration file
//  4. Values already present in the target struct (defaults)
//
// Watcher reports changes to watched configuration files through fsnotify.
package confloader
