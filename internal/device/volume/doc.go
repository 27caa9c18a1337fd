// Package volume implements the device backend for tokens carried on
// mounted removable volumes.
//
// Every directory directly under the mount root is a volume. A volume
// that carries a .guardian/device.yaml manifest describes itself:
//
//	<root>/<volume>/.guardian/device.yaml   name, id, type
//	<root>/<volume>/.guardian/key           key material
//	<root>/<volume>/.guardian/inbox/        one command per file, oldest first
//	<root>/<volume>/.guardian/outbox        data written by Guardian
//
// Volumes without a manifest are reported as storage devices. Mount and
// inbox changes are picked up through fsnotify with a polling fallback.
package volume
