// Package classifier defines the streaming wake-word classifier capability
// and the read-only signal accessor that feeds it one slice at a time.
// The real model is an opaque vendor component; an energy-based placeholder
// is provided for development builds.
package classifier
