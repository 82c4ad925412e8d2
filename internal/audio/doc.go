// Package audio handles acquisition from the stereo-framed digital bus.
// It implements left-channel extraction with fixed bit-depth scaling,
// full-or-fail slice reads with incremental RMS energy, and the
// fixed-duration capture buffer used after a wake event.
package audio
