package cab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeChecksum(t *testing.T) {
	assert.Equal(t, uint32(0), computeChecksum(nil, 0))
	assert.Equal(t, uint32(0xDEADBEEF), computeChecksum(nil, 0xDEADBEEF))
	assert.Equal(t, uint32(0x04030201), computeChecksum([]byte{0x1, 0x2, 0x3, 0x4}, 0))
	// Known-good vector covering the trailing partial word rule.
	assert.Equal(t, uint32(67503110), computeChecksum([]byte{0x1, 0x2, 0x3, 0x4, 0x5, 0x6, 0x7}, 0))
}

func TestComputeChecksumTailFold(t *testing.T) {
	// Tail bytes fill the word from the top in stream order.
	assert.Equal(t, uint32(0x05), computeChecksum([]byte{0x5}, 0))
	assert.Equal(t, uint32(0x0506), computeChecksum([]byte{0x5, 0x6}, 0))
	assert.Equal(t, uint32(0x050607), computeChecksum([]byte{0x5, 0x6, 0x7}, 0))
}

func TestComputeChecksumSeedChaining(t *testing.T) {
	// Folding a word-aligned prefix first and seeding the rest gives the
	// same result as folding the whole buffer.
	buf := []byte("cabinet data block payload")
	assert.Equal(t,
		computeChecksum(buf, 0),
		computeChecksum(buf[8:], computeChecksum(buf[:8], 0)))
}
