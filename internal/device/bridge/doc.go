// Package bridge implements the device backend for an external hardware
// bridge attached over a local Unix socket.
//
// Guardian listens on the socket. Each bridge connection is one attached
// device; closing the connection detaches it. Guardian drives the
// connection with newline-framed requests and the bridge answers each
// with exactly one line:
//
//	INFO          -> OK {"name":"…","id":"…","type":"token"}
//	CONNECT       -> OK
//	READ <n>      -> OK <base64 data>
//	WRITE <b64>   -> OK
//	WAIT <ms>     -> CMD <command> | TIMEOUT
//	DISCONNECT    -> OK
//
// Any request may be answered with ERR <message>.
package bridge
