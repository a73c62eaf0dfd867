package s3

import (
	"bytes"
	"crypto/sha256"
	"testing"
)

func TestParseChecksum(t *testing.T) {
	tests := []struct {
		in       string
		expected Checksum
		wantErr  bool
	}{
		{"sha256", ChecksumSHA256, false},
		{"crc32", ChecksumCRC32, false},
		{"md5", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseChecksum(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseChecksum(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseChecksum(%q) failed: %v", tt.in, err)
		}
		if got != tt.expected {
			t.Errorf("ParseChecksum(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestChecksum_DigestSHA256(t *testing.T) {
	body := []byte("hello")
	want := sha256.Sum256(body)
	if got := ChecksumSHA256.Digest(body); !bytes.Equal(got, want[:]) {
		t.Errorf("digest mismatch")
	}
}

func TestChecksum_DigestCRC32(t *testing.T) {
	// IEEE CRC32 of "123456789" is 0xCBF43926, big-endian on the wire.
	got := ChecksumCRC32.Digest([]byte("123456789"))
	want := []byte{0xCB, 0xF4, 0x39, 0x26}
	if !bytes.Equal(got, want) {
		t.Errorf("digest = %x, want %x", got, want)
	}
}

func TestChecksum_HeaderName(t *testing.T) {
	if got := ChecksumSHA256.HeaderName(); got != "x-amz-checksum-sha256" {
		t.Errorf("header = %q", got)
	}
	if got := ChecksumCRC32.HeaderName(); got != "x-amz-checksum-crc32" {
		t.Errorf("header = %q", got)
	}
}
