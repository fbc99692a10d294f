// crc.go — Table-driven CRC-32 as mandated for every PNG chunk.
package pngmeta

import "sync"

// Polynomial is the reflected CRC-32 polynomial used by PNG (and zlib, gzip).
const Polynomial = 0xEDB88320

// crcTable is built on first use and never modified afterwards.
var crcTable = sync.OnceValue(func() *[256]uint32 {
	var t [256]uint32
	for n := range t {
		c := uint32(n)
		for k := 0; k < 8; k++ {
			if c&1 != 0 {
				c = Polynomial ^ (c >> 1)
			} else {
				c >>= 1
			}
		}
		t[n] = c
	}
	return &t
})

// Checksum returns the CRC-32 of b. Checksum(nil) is 0.
func Checksum(b []byte) uint32 {
	return Update(0, b)
}

// Update returns the checksum of the bytes already summed into crc followed
// by b, so Update(Checksum(a), b) == Checksum(a ‖ b).
func Update(crc uint32, b []byte) uint32 {
	t := crcTable()
	c := ^crc
	for _, v := range b {
		c = t[byte(c)^v] ^ (c >> 8)
	}
	return ^c
}
