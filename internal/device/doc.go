// Package device defines the capability interfaces for physical devices.
//
// The package holds:
//
//   - Channel: connect, disconnect, read, write, descriptor, command wait
//   - Directory: enumeration and blocking discovery of devices
//   - Discovery: a closed set of discovered device classes (Token,
//     Storage, Other) returned by Directory.WaitForDevice
//   - Placeholder: a directory that never finds anything
//
// Backends live in sub-packages:
//
//   - volume: mounted removable volumes carrying a .guardian manifest
//   - bridge: an external hardware bridge over a local socket
//   - devicetest: scripted in-memory devices for tests
package device
