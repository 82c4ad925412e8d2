// Package agent implements the orchestration loop: warm-up, continuous
// inference, wake-event handling, post-trigger capture, and streaming.
// The loop is the single worker touching the audio bus, which is what
// provides the one-capture-in-flight invariant without locking.
package agent
