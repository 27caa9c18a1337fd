// Package connection is the guardian CLI's client for the daemon's local
// HTTP API.
//
// Responses use the daemon's envelope ({code, message, request_id, data});
// Client unwraps data on success and turns error envelopes into Go
// errors that keep the daemon's error code.
package connection
