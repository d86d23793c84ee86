// Package waveform holds the sampled trace container consumed by the
// picker: a channel of evenly spaced samples with an absolute start time.
//
// Trim returns an independent copy, Slice returns a view that shares the
// parent's sample array and must be treated as read-only. Variants gives
// explicit, per-call access to named versions of the same recording
// (processed, raw) so no component keeps a "current trace" pointer.
package waveform
