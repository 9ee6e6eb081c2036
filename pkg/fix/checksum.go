package fix

import "fmt"

// checksum computes the FIX tag 10 value: the decimal sum of every byte in
// b, modulo 256, rendered as a zero-padded three-digit string. It is
// computed over the exact bytes given — callers must not canonicalize
// field order first.
func checksum(b []byte) string {
	var sum int
	for _, c := range b {
		sum += int(c)
	}
	return fmt.Sprintf("%03d", sum%256)
}
