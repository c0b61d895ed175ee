// Package idgen provides injectable identifier generation.
package idgen
