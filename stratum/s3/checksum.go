package s3

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Checksum identifies a payload integrity algorithm. The digest is sent
// base64-encoded in the algorithm's x-amz-checksum header. SHA256 is
// special: its digest doubles as the SigV4 payload hash, so uploads signed
// with a SHA256 checksum avoid hashing the payload twice.
type Checksum string

const (
	// ChecksumSHA256 is the content-hash algorithm.
	ChecksumSHA256 Checksum = "sha256"

	// ChecksumCRC32 is the IEEE CRC32 algorithm, big-endian encoded.
	ChecksumCRC32 Checksum = "crc32"
)

// ParseChecksum returns the Checksum named by s.
func ParseChecksum(s string) (Checksum, error) {
	switch Checksum(s) {
	case ChecksumSHA256:
		return ChecksumSHA256, nil
	case ChecksumCRC32:
		return ChecksumCRC32, nil
	}
	return "", fmt.Errorf("unsupported checksum algorithm %q", s)
}

// Digest computes the checksum of b.
func (c Checksum) Digest(b []byte) []byte {
	switch c {
	case ChecksumSHA256:
		sum := sha256.Sum256(b)
		return sum[:]
	case ChecksumCRC32:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], crc32.ChecksumIEEE(b))
		return buf[:]
	}
	return nil
}

// HeaderName returns the request header carrying the digest.
func (c Checksum) HeaderName() string {
	return "x-amz-checksum-" + string(c)
}
