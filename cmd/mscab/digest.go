package main

import (
	"crypto/md5"
	"encoding/hex"
)

// md5hex digests reconstructed file bytes for reporting.
func md5hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
