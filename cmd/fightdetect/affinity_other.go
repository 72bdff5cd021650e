//go:build !linux

package main

import "errors"

func setCPUAffinity(cores []int) error {
	return errors.New("setting CPU affinity is only supported on linux")
}
