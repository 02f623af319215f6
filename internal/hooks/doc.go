// Package hooks binds fixed guest code addresses to tracer events.
//
// A Table maps the entry and exit addresses of traced kernel functions to the
// action taken when the guest executes them. The Dispatcher plays the part of
// the emulator plugin: it scans translated blocks for hooked instructions and,
// when one executes, reads the stack pointer and stack arguments from the
// guest and forwards a complete event to a Recorder. Events whose guest data
// cannot be read are dropped before they reach the Recorder.
package hooks
