package mmjp

// UTF-8 codec. Hand-rolled rather than relying solely on the standard
// library's unicode/utf8, since this needs exact control over which
// malformed sequences are rejected (overlong forms, surrogate-range
// scalars, scalars above U+10FFFF) and an explicit byte-advance
// contract on both success and failure.

const (
	runeSelf  = 0x80
	maxRune   = 0x10FFFF
	surrLo    = 0xD800
	surrHi    = 0xDFFF
	replaceCh = 0xFFFD
)

// decodeRune decodes one codepoint from b starting at off. On success
// it returns the codepoint and the number of bytes consumed (1-4). On
// failure it returns (0, 0, err) with err.Kind == KindInvalidUTF8.
func decodeRune(b []byte, off int) (rune, int, error) {
	if off >= len(b) {
		return 0, 0, newErr("decodeRune", KindInvalidUTF8, "offset past end of buffer")
	}
	b0 := b[off]
	switch {
	case b0 < 0x80:
		return rune(b0), 1, nil
	case b0&0xE0 == 0xC0:
		return decodeMulti(b, off, 2, 0x1F, 0x80, 0x7FF)
	case b0&0xF0 == 0xE0:
		return decodeMulti(b, off, 3, 0x0F, 0x800, 0xFFFF)
	case b0&0xF8 == 0xF0:
		return decodeMulti(b, off, 4, 0x07, 0x10000, maxRune)
	default:
		return 0, 0, newErr("decodeRune", KindInvalidUTF8, "invalid leading byte")
	}
}

// decodeMulti decodes a multi-byte sequence of the given length,
// rejecting overlong encodings (cp < lowBound) and out-of-range/
// surrogate scalars.
func decodeMulti(b []byte, off, n int, leadMask byte, lowBound, highBound rune) (rune, int, error) {
	if off+n > len(b) {
		return 0, 0, newErr("decodeRune", KindInvalidUTF8, "buffer ends mid-sequence")
	}
	cp := rune(b[off] & leadMask)
	for i := 1; i < n; i++ {
		c := b[off+i]
		if c&0xC0 != 0x80 {
			return 0, 0, newErr("decodeRune", KindInvalidUTF8, "bad continuation byte")
		}
		cp = cp<<6 | rune(c&0x3F)
	}
	if cp < lowBound || cp > highBound {
		return 0, 0, newErr("decodeRune", KindInvalidUTF8, "overlong or out-of-range encoding")
	}
	if cp >= surrLo && cp <= surrHi {
		return 0, 0, newErr("decodeRune", KindInvalidUTF8, "surrogate codepoint")
	}
	if cp > maxRune {
		return 0, 0, newErr("decodeRune", KindInvalidUTF8, "codepoint exceeds U+10FFFF")
	}
	return cp, n, nil
}

// encodeRune appends the canonical UTF-8 encoding of cp to dst and
// returns the extended slice. Fails with KindBadArg for surrogate or
// out-of-range scalars.
func encodeRune(dst []byte, cp rune) ([]byte, error) {
	switch {
	case cp < 0 || (cp >= surrLo && cp <= surrHi) || cp > maxRune:
		return dst, newErr("encodeRune", KindBadArg, "scalar not encodable")
	case cp < 0x80:
		return append(dst, byte(cp)), nil
	case cp < 0x800:
		return append(dst,
			byte(0xC0|(cp>>6)),
			byte(0x80|(cp&0x3F)),
		), nil
	case cp < 0x10000:
		return append(dst,
			byte(0xE0|(cp>>12)),
			byte(0x80|((cp>>6)&0x3F)),
			byte(0x80|(cp&0x3F)),
		), nil
	default:
		return append(dst,
			byte(0xF0|(cp>>18)),
			byte(0x80|((cp>>12)&0x3F)),
			byte(0x80|((cp>>6)&0x3F)),
			byte(0x80|(cp&0x3F)),
		), nil
	}
}

// BuildOffsets returns offsets[0..N] where offsets[i] is the byte
// position of the i-th codepoint in b and offsets[N] == len(b).
// Fails with KindInvalidUTF8 if b cannot be fully parsed as UTF-8.
func BuildOffsets(b []byte) ([]int, error) {
	offsets := make([]int, 0, len(b)+1)
	pos := 0
	for pos < len(b) {
		offsets = append(offsets, pos)
		_, adv, err := decodeRune(b, pos)
		if err != nil {
			return nil, wrapErr("BuildOffsets", KindInvalidUTF8, "invalid UTF-8 input", err)
		}
		pos += adv
	}
	offsets = append(offsets, pos)
	return offsets, nil
}

// DecodeAll decodes b fully into a slice of codepoints, failing with
// KindInvalidUTF8 on the first malformed sequence.
func DecodeAll(b []byte) ([]rune, error) {
	runes := make([]rune, 0, len(b))
	pos := 0
	for pos < len(b) {
		cp, adv, err := decodeRune(b, pos)
		if err != nil {
			return nil, wrapErr("DecodeAll", KindInvalidUTF8, "invalid UTF-8 input", err)
		}
		runes = append(runes, cp)
		pos += adv
	}
	return runes, nil
}

// ValidUTF8 reports whether b is a fully valid UTF-8 byte string under
// the strict rules above (no overlongs, no surrogates, no scalars past
// U+10FFFF).
func ValidUTF8(b []byte) bool {
	_, err := BuildOffsets(b)
	return err == nil
}
