package mmjp

// Lossless whitespace codec: a bijection on UTF-8 byte strings that
// re-encodes space/tab/(optionally) LF/CR into dedicated meta
// codepoints so that tokenization boundaries never have to straddle
// whitespace ambiguously, while still round-tripping exactly.

const (
	metaEscape rune = 0x2580 // ▀ escape prefix
	metaSpace  rune = 0x2581 // ▁ space
	metaTab    rune = 0x2582 // ▂ tab
	metaLF     rune = 0x2583 // ▃ LF
	metaCR     rune = 0x2584 // ▄ CR
)

func isMeta(cp rune) bool {
	return cp >= metaEscape && cp <= metaCR
}

// EncodeLossless maps whitespace codepoints of s to their meta forms,
// escaping any codepoint that is itself a meta codepoint with a
// leading ▀. Invalid UTF-8 byte runs in s copy through byte-for-byte
// (the decoder preserves them as-is), tolerating imperfect corpora
// rather than rejecting them outright.
func EncodeLossless(s []byte, includeNewlines bool) []byte {
	out := make([]byte, 0, len(s)+len(s)/8)
	pos := 0
	for pos < len(s) {
		cp, adv, err := decodeRune(s, pos)
		if err != nil {
			out = append(out, s[pos])
			pos++
			continue
		}
		switch {
		case cp == ' ':
			out, _ = encodeRune(out, metaSpace)
		case cp == '\t':
			out, _ = encodeRune(out, metaTab)
		case includeNewlines && cp == '\n':
			out, _ = encodeRune(out, metaLF)
		case includeNewlines && cp == '\r':
			out, _ = encodeRune(out, metaCR)
		case isMeta(cp):
			out, _ = encodeRune(out, metaEscape)
			out, _ = encodeRune(out, cp)
		default:
			out = append(out, s[pos:pos+adv]...)
		}
		pos += adv
	}
	return out
}

// DecodeLossless inverts EncodeLossless. A trailing lone escape (no
// following codepoint) is emitted unchanged rather than dropped.
func DecodeLossless(s []byte) []byte {
	out := make([]byte, 0, len(s))
	pos := 0
	for pos < len(s) {
		cp, adv, err := decodeRune(s, pos)
		if err != nil {
			out = append(out, s[pos])
			pos++
			continue
		}
		switch cp {
		case metaSpace:
			out = append(out, ' ')
		case metaTab:
			out = append(out, '\t')
		case metaLF:
			out = append(out, '\n')
		case metaCR:
			out = append(out, '\r')
		case metaEscape:
			if pos+adv >= len(s) {
				out = append(out, s[pos:pos+adv]...)
				pos += adv
				continue
			}
			cp2, adv2, err2 := decodeRune(s, pos+adv)
			if err2 != nil {
				out = append(out, s[pos:pos+adv]...)
				pos += adv
				continue
			}
			out, _ = encodeRune(out, cp2)
			pos += adv + adv2
			continue
		default:
			out = append(out, s[pos:pos+adv]...)
		}
		pos += adv
	}
	return out
}
