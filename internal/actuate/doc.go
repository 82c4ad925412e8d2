// Package actuate defines the actuation capability for status indication
// and remote-command execution against a small fixed set of named targets.
package actuate
