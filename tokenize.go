package mmjp

import "bytes"

// Tokenize/Detokenize convenience pair over the lossless codec and
// the semi-Markov decoder, pure functions over an already-read line —
// no argv/stdin handling.

// TokenizeLine lossless-encodes line, decodes it under m, and returns
// the resulting tokens joined by a single ASCII space. Tokens are
// printed in their lossless-encoded
// form (word-internal former whitespace stays meta-codepoints, never
// a literal space) so a plain space is an unambiguous token
// separator for DetokenizeLine. includeNewlines controls whether
// embedded LF/CR are themselves escaped rather than acting as line
// breaks.
func TokenizeLine(w *WorkArea, m *Model, line []byte, includeNewlines bool) (string, error) {
	enc := EncodeLossless(line, includeNewlines)
	boundaries, _, err := DecodeRetry(w, m, enc)
	if err != nil {
		return "", err
	}
	tokens := make([]string, 0, len(boundaries)-1)
	for i := 0; i+1 < len(boundaries); i++ {
		tokens = append(tokens, string(enc[boundaries[i]:boundaries[i+1]]))
	}
	return joinSpace(tokens), nil
}

func joinSpace(tokens []string) string {
	var buf bytes.Buffer
	for i, t := range tokens {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(t)
	}
	return buf.String()
}

// DetokenizeLine inverts TokenizeLine's stream format: it splits line
// on runs of whitespace as bytes.Fields defines it (unicode.IsSpace), so
// any literal space, tab, LF or CR is dropped, not only the single
// separator space; it then joins the
// tokens, then applies DecodeLossless to recover the original bytes.
// If the result does not end in a newline, one is appended.
func DetokenizeLine(line []byte) []byte {
	fields := bytes.Fields(line)
	joined := bytes.Join(fields, nil)
	out := DecodeLossless(joined)
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out
}
