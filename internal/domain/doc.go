// Package domain holds the value types that travel through a send: the
// request as submitted, the recipients parsed from an upload, the envelope
// handed to a transport and the per-recipient outcomes collected into the
// report.
//
// The package imports nothing from internal/ so that handlers, the pipeline
// and the transports can all depend on it. Behavior is limited to JSON
// encoding of outcomes.
package domain
