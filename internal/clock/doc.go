// Package clock provides an injectable time source.
package clock
