// Package tracer correlates the enter and exit events produced by hooks placed
// on blocking kernel calls of an emulated guest.
//
// A Tracer keeps three structures behind one lock: the calls that have been
// entered but not yet left, a tally of count-only call sites, and a tally of
// signalled objects. Exits are matched to entries by stack pointer proximity
// rather than exact identity, because the hooked functions may return through
// alternate paths or out of LIFO order.
//
// The debug console drives a Tracer through RunCommand:
//
//	waittrace dump    render every outstanding call, counter and signal
//	waittrace clear   reset all state
package tracer
