// Package detect drives the streaming classifier over the sliding window
// and gates wake events on classifier confidence and RMS energy from the
// same acquisition cycle.
package detect
