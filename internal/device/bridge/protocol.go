package bridge

import (
	"fmt"
	"strings"
)

// Request verbs.
const (
	VerbInfo       = "INFO"
	VerbConnect    = "CONNECT"
	VerbRead       = "READ"
	VerbWrite      = "WRITE"
	VerbWait       = "WAIT"
	VerbDisconnect = "DISCONNECT"
)

// Reply kinds.
const (
	ReplyOK      = "OK"
	ReplyCommand = "CMD"
	ReplyTimeout = "TIMEOUT"
	ReplyError   = "ERR"
)

// maxLine bounds a single protocol line. A 1 KiB read is ~1.4 KiB of base64.
const maxLine = 64 * 1024

// Reply is a parsed bridge reply line.
type Reply struct {
	Kind    string
	Payload string
}

// ParseReply splits a reply line into kind and payload.
func ParseReply(line string) (Reply, error) {
	line = strings.TrimRight(line, "\r\n")
	kind, payload, _ := strings.Cut(line, " ")
	switch kind {
	case ReplyOK, ReplyCommand, ReplyTimeout, ReplyError:
		return Reply{Kind: kind, Payload: payload}, nil
	default:
		return Reply{}, fmt.Errorf("malformed reply %q", line)
	}
}

// String formats the reply as a protocol line without the newline.
func (r Reply) String() string {
	if r.Payload == "" {
		return r.Kind
	}
	return r.Kind + " " + r.Payload
}

// ParseRequest splits a request line into verb and argument.
func ParseRequest(line string) (verb, arg string) {
	line = strings.TrimRight(line, "\r\n")
	verb, arg, _ = strings.Cut(line, " ")
	return verb, arg
}
