/*
Copyright © 2026 HexDino
*/

package main

import (
	"fmt"
)

// humanReadableSize formats n bytes with SI units.
func humanReadableSize(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d B", n)
	}

	size := float64(n)
	for _, unit := range "kMGTPE" {
		size /= 1000
		if size < 1000 {
			return fmt.Sprintf("%.1f %cB", size, unit)
		}
	}
	return fmt.Sprintf("%.1f EB", size)
}
