// Package percent implements byte-level percent-encoding with configurable
// escape sets.
//
// Encoding is purely byte-oriented: multi-byte UTF-8 sequences are escaped
// byte by byte and no path normalization (".", "..") is performed.
package percent

// Set describes which bytes pass through unescaped. ASCII bytes listed in
// the set are emitted verbatim; everything else (including all bytes >=
// 0x80) is emitted as %XX with uppercase hex digits.
type Set struct {
	safe [128]bool
}

// NewSet returns a Set that keeps ASCII letters, digits, and every byte in
// extra unescaped.
func NewSet(extra string) *Set {
	s := &Set{}
	for b := byte('0'); b <= '9'; b++ {
		s.safe[b] = true
	}
	for b := byte('a'); b <= 'z'; b++ {
		s.safe[b] = true
	}
	for b := byte('A'); b <= 'Z'; b++ {
		s.safe[b] = true
	}
	for i := 0; i < len(extra); i++ {
		s.safe[extra[i]] = true
	}
	return s
}

// Keep returns a copy of the set that additionally leaves b unescaped.
func (s *Set) Keep(b byte) *Set {
	c := &Set{safe: s.safe}
	c.safe[b] = true
	return c
}

const upperhex = "0123456789ABCDEF"

// Encode percent-encodes every byte of in that is not in the set.
func (s *Set) Encode(in string) string {
	hot := 0
	for i := 0; i < len(in); i++ {
		if b := in[i]; b >= 0x80 || !s.safe[b] {
			hot++
		}
	}
	if hot == 0 {
		return in
	}

	out := make([]byte, 0, len(in)+2*hot)
	for i := 0; i < len(in); i++ {
		b := in[i]
		if b < 0x80 && s.safe[b] {
			out = append(out, b)
			continue
		}
		out = append(out, '%', upperhex[b>>4], upperhex[b&0xf])
	}
	return string(out)
}

// Strict escapes every character unsafe anywhere in a URL, keeping only the
// RFC 3986 unreserved set.
var Strict = NewSet("-._~")

// StrictPath is Strict with the path delimiter kept, so multi-segment
// object keys stay structurally intact inside a URL path.
var StrictPath = Strict.Keep('/')
