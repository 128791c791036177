// Package cpu pins pool workers to CPU cores.
package cpu
