// Package random provides seed generation for the pseudo-random
// sources used by role assignment.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %v", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
