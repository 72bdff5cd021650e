package main

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// setCPUAffinity restricts the process to run on the given CPU cores, the
// OpenCV DNN threads inherit the mask
func setCPUAffinity(cores []int) error {

	var set unix.CPUSet
	set.Zero()

	for _, c := range cores {
		set.Set(c)
	}

	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("failed to set CPU affinity: %w", err)
	}

	return nil
}
