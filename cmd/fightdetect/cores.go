package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parseCores parses a comma delimited list of CPU core numbers such as
// "4,5,6,7".  Ranges like "4-7" are also accepted.
func parseCores(s string) ([]int, error) {

	var cores []int
	seen := make(map[int]bool)

	add := func(c int) error {
		if c < 0 || c > 1023 {
			return fmt.Errorf("cpu core %d out of range", c)
		}
		if !seen[c] {
			seen[c] = true
			cores = append(cores, c)
		}
		return nil
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)

		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")

		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid cpu core %q", part)
		}

		last := first

		if isRange {
			if last, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || last < first {
				return nil, fmt.Errorf("invalid cpu core range %q", part)
			}
		}

		for c := first; c <= last; c++ {
			if err := add(c); err != nil {
				return nil, err
			}
		}
	}

	if len(cores) == 0 {
		return nil, fmt.Errorf("no cpu cores in %q", s)
	}

	return cores, nil
}
