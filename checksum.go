package cab

// computeChecksum folds a buffer into seed four bytes at a time as
// little-endian 32-bit words. A trailing remainder of 1-3 bytes is folded
// in stream order filling the word from the top, matching CSUMCompute from
// the cabinet reference code.
func computeChecksum(pv []byte, seed uint32) uint32 {
	csum := seed
	pb := pv

	for len(pb) >= 4 {
		ul := uint32(pb[0])
		ul |= uint32(pb[1]) << 8
		ul |= uint32(pb[2]) << 16
		ul |= uint32(pb[3]) << 24
		pb = pb[4:]
		csum ^= ul
	}

	ul := uint32(0)
	for len(pb) > 0 {
		ul = (ul << 8) | uint32(pb[0])
		pb = pb[1:]
	}
	csum ^= ul

	return csum
}
