//go:build linux

package cpu

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// Pin locks the calling goroutine to its OS thread and restricts that thread
// to a single CPU chosen round-robin by workerID among the CPUs the process
// may use. The returned release func undoes both.
//
// On error the goroutine is left unlocked.
func Pin(workerID int) (release func(), err error) {
	var allowed unix.CPUSet
	if err := unix.SchedGetaffinity(0, &allowed); err != nil {
		return nil, err
	}

	cpus := make([]int, 0, allowed.Count())
	for i := 0; len(cpus) < allowed.Count(); i++ {
		if allowed.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	if len(cpus) == 0 {
		return func() {}, nil
	}

	runtime.LockOSThread()

	var mask unix.CPUSet
	mask.Set(cpus[workerID%len(cpus)])
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}

	return func() {
		// The thread goes back to the runtime with its full mask.
		_ = unix.SchedSetaffinity(0, &allowed)
		runtime.UnlockOSThread()
	}, nil
}
