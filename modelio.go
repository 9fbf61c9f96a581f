package mmjp

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Binary model file format. Little-endian throughout; v1 is read-only
// legacy support, v2 is written by Save.

var (
	magicV2 = [8]byte{'M', 'M', 'J', 'P', 'v', '2', 0, 0}
	magicV1 = [8]byte{'M', 'M', 'J', 'P', 'v', '1', 0, 0}
)

// Flags bits. CC_* bits are written for annotation only — cc_mode is
// the authoritative byte on load, flags is never consulted to pick the
// classifier mode.
const (
	FlagLosslessWS uint32 = 1 << 0
	FlagCCAscii    uint32 = 1 << 8
	FlagCCUTF8Len  uint32 = 1 << 9
	FlagCCRanges   uint32 = 1 << 10
	FlagCCCompat   uint32 = 1 << 11
)

type modelHeaderV2 struct {
	Magic         [8]byte
	Version       uint32
	DaIndexBytes  uint32
	DaCapacity    uint32
	VocabSize     uint32
	MaxWordLen    uint32
	UnkBase       int16
	UnkPerCp      int16
	Lambda0       int16
	Trans00       int16
	Trans01       int16
	Trans10       int16
	Trans11       int16
	BosTo1        int16
	FeatCount     uint32
	BigramSize    uint32
	Flags         uint32
	CcMode        uint8
	CcFallback    uint8
	Padding       uint16
	CcRangeCount  uint32
}

// SaveModel writes m to w in the v2 binary format.
func SaveModel(w io.Writer, m *Model) error {
	base, check := m.Trie.Arrays()
	hdr := modelHeaderV2{
		Magic:        magicV2,
		Version:      2,
		DaIndexBytes: 4,
		DaCapacity:   uint32(len(base)),
		VocabSize:    uint32(len(m.LM.LogP)),
		MaxWordLen:   uint32(m.MaxWordLenCP),
		UnkBase:      m.LM.UnkBase,
		UnkPerCp:     m.LM.UnkPerCP,
		Lambda0:      m.Lambda0,
		Trans00:      m.CRF.Trans00,
		Trans01:      m.CRF.Trans01,
		Trans10:      m.CRF.Trans10,
		Trans11:      m.CRF.Trans11,
		BosTo1:       m.CRF.BOSTo1,
		FeatCount:    uint32(len(m.CRF.FeatKey)),
		BigramSize:   uint32(len(m.LM.Bigram)),
		CcMode:       uint8(m.Classifier.Mode),
		CcFallback:   uint8(m.Classifier.Fallback),
		CcRangeCount: uint32(len(m.Classifier.Ranges)),
	}
	if m.LosslessWS {
		hdr.Flags |= FlagLosslessWS
	}
	switch m.Classifier.Mode {
	case ModeASCII:
		hdr.Flags |= FlagCCAscii
	case ModeUTF8Len:
		hdr.Flags |= FlagCCUTF8Len
	case ModeRanges:
		hdr.Flags |= FlagCCRanges
	case ModeCompat:
		hdr.Flags |= FlagCCCompat
	}

	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return wrapErr("SaveModel", KindIO, "header write failed", err)
	}
	if err := binary.Write(w, binary.LittleEndian, base); err != nil {
		return wrapErr("SaveModel", KindIO, "base array write failed", err)
	}
	if err := binary.Write(w, binary.LittleEndian, check); err != nil {
		return wrapErr("SaveModel", KindIO, "check array write failed", err)
	}
	if err := binary.Write(w, binary.LittleEndian, m.LM.LogP); err != nil {
		return wrapErr("SaveModel", KindIO, "logp_uni write failed", err)
	}
	if len(m.LM.Bigram) > 0 {
		keys := make([]uint32, len(m.LM.Bigram))
		vals := make([]int16, len(m.LM.Bigram))
		for i, e := range m.LM.Bigram {
			keys[i], vals[i] = e.Key, e.LogP
		}
		if err := binary.Write(w, binary.LittleEndian, keys); err != nil {
			return wrapErr("SaveModel", KindIO, "bigram_key write failed", err)
		}
		if err := binary.Write(w, binary.LittleEndian, vals); err != nil {
			return wrapErr("SaveModel", KindIO, "logp_bi write failed", err)
		}
	}
	if len(m.CRF.FeatKey) > 0 {
		if err := binary.Write(w, binary.LittleEndian, m.CRF.FeatKey); err != nil {
			return wrapErr("SaveModel", KindIO, "feat_key write failed", err)
		}
		if err := binary.Write(w, binary.LittleEndian, m.CRF.FeatWeight); err != nil {
			return wrapErr("SaveModel", KindIO, "feat_w write failed", err)
		}
	}
	for _, r := range m.Classifier.Ranges {
		rec := struct {
			Lo, Hi  uint32
			Class   uint8
			Pad     [3]uint8
		}{Lo: r.Lo, Hi: r.Hi, Class: r.Class}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return wrapErr("SaveModel", KindIO, "cc range write failed", err)
		}
	}
	return nil
}

// LoadModel reads a v1 or v2 model from r, dispatching on magic.
func LoadModel(r io.Reader) (*Model, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, wrapErr("LoadModel", KindIO, "magic read failed", err)
	}
	switch magic {
	case magicV2:
		return loadModelV2(r)
	case magicV1:
		return loadModelV1(r)
	default:
		return nil, newErr("LoadModel", KindBadArg, "unrecognized magic")
	}
}

func loadModelV2(r io.Reader) (*Model, error) {
	var rest struct {
		Version      uint32
		DaIndexBytes uint32
		DaCapacity   uint32
		VocabSize    uint32
		MaxWordLen   uint32
		UnkBase      int16
		UnkPerCp     int16
		Lambda0      int16
		Trans00      int16
		Trans01      int16
		Trans10      int16
		Trans11      int16
		BosTo1       int16
		FeatCount    uint32
		BigramSize   uint32
		Flags        uint32
		CcMode       uint8
		CcFallback   uint8
		Padding      uint16
		CcRangeCount uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &rest); err != nil {
		return nil, wrapErr("LoadModel", KindIO, "v2 header read failed", err)
	}
	if rest.DaIndexBytes != 4 {
		return nil, newErr("LoadModel", KindBadArg, "unsupported da_index_bytes")
	}

	base, check, err := readDaArrays(r, int(rest.DaCapacity))
	if err != nil {
		return nil, err
	}
	trie, err := NewTrieRO(base, check)
	if err != nil {
		return nil, err
	}
	logp, err := readI16Slice(r, int(rest.VocabSize))
	if err != nil {
		return nil, err
	}
	lm := &UnigramLM{LogP: logp, UnkBase: rest.UnkBase, UnkPerCP: rest.UnkPerCp}
	if rest.BigramSize > 0 {
		bigram, err := readBigram(r, int(rest.BigramSize))
		if err != nil {
			return nil, err
		}
		lm.Bigram = bigram
	}
	crf := &CRF{
		Trans00: rest.Trans00, Trans01: rest.Trans01,
		Trans10: rest.Trans10, Trans11: rest.Trans11, BOSTo1: rest.BosTo1,
	}
	if rest.FeatCount > 0 {
		keys, weights, err := readFeatures(r, int(rest.FeatCount))
		if err != nil {
			return nil, err
		}
		crf.FeatKey, crf.FeatWeight = keys, weights
	}
	var ranges []ClassRange
	for i := uint32(0); i < rest.CcRangeCount; i++ {
		var rec struct {
			Lo, Hi uint32
			Class  uint8
			Pad    [3]uint8
		}
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, wrapErr("LoadModel", KindIO, "cc range read failed", err)
		}
		ranges = append(ranges, ClassRange{Lo: rec.Lo, Hi: rec.Hi, Class: rec.Class})
	}
	fallback := ClassMode(rest.CcFallback)
	classifier, err := NewClassifier(ClassMode(rest.CcMode), fallback, ranges)
	if err != nil {
		return nil, err
	}

	return &Model{
		CRF: crf, LM: lm, Trie: trie, Classifier: classifier,
		MaxWordLenCP: int(rest.MaxWordLen), Lambda0: rest.Lambda0,
		LosslessWS: rest.Flags&FlagLosslessWS != 0,
	}, nil
}

// loadModelV1 reads the legacy header, which ends right after
// bigram_size and lacks flags, cc_mode, cc_fallback, padding,
// cc_range_count, and range records; it defaults the classifier to
// ASCII mode and lossless-ws to disabled since v1 never recorded them.
func loadModelV1(r io.Reader) (*Model, error) {
	var rest struct {
		Version      uint32
		DaIndexBytes uint32
		DaCapacity   uint32
		VocabSize    uint32
		MaxWordLen   uint32
		UnkBase      int16
		UnkPerCp     int16
		Lambda0      int16
		Trans00      int16
		Trans01      int16
		Trans10      int16
		Trans11      int16
		BosTo1       int16
		FeatCount    uint32
		BigramSize   uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &rest); err != nil {
		return nil, wrapErr("LoadModel", KindIO, "v1 header read failed", err)
	}
	if rest.DaIndexBytes != 4 {
		return nil, newErr("LoadModel", KindBadArg, "unsupported da_index_bytes")
	}
	base, check, err := readDaArrays(r, int(rest.DaCapacity))
	if err != nil {
		return nil, err
	}
	trie, err := NewTrieRO(base, check)
	if err != nil {
		return nil, err
	}
	logp, err := readI16Slice(r, int(rest.VocabSize))
	if err != nil {
		return nil, err
	}
	lm := &UnigramLM{LogP: logp, UnkBase: rest.UnkBase, UnkPerCP: rest.UnkPerCp}
	if rest.BigramSize > 0 {
		bigram, err := readBigram(r, int(rest.BigramSize))
		if err != nil {
			return nil, err
		}
		lm.Bigram = bigram
	}
	crf := &CRF{
		Trans00: rest.Trans00, Trans01: rest.Trans01,
		Trans10: rest.Trans10, Trans11: rest.Trans11, BOSTo1: rest.BosTo1,
	}
	if rest.FeatCount > 0 {
		keys, weights, err := readFeatures(r, int(rest.FeatCount))
		if err != nil {
			return nil, err
		}
		crf.FeatKey, crf.FeatWeight = keys, weights
	}
	classifier, err := NewClassifier(ModeASCII, ModeASCII, nil)
	if err != nil {
		return nil, err
	}
	return &Model{
		CRF: crf, LM: lm, Trie: trie, Classifier: classifier,
		MaxWordLenCP: int(rest.MaxWordLen), Lambda0: rest.Lambda0,
	}, nil
}

func readDaArrays(r io.Reader, n int) (base, check []int32, err error) {
	base, err = readI32Slice(r, n)
	if err != nil {
		return nil, nil, err
	}
	check, err = readI32Slice(r, n)
	if err != nil {
		return nil, nil, err
	}
	return base, check, nil
}

func readI32Slice(r io.Reader, n int) ([]int32, error) {
	out := make([]int32, n)
	if n == 0 {
		return out, nil
	}
	if err := binary.Read(r, binary.LittleEndian, out); err != nil {
		return nil, wrapErr("readI32Slice", KindIO, "read failed", err)
	}
	return out, nil
}

func readI16Slice(r io.Reader, n int) ([]int16, error) {
	out := make([]int16, n)
	if n == 0 {
		return out, nil
	}
	if err := binary.Read(r, binary.LittleEndian, out); err != nil {
		return nil, wrapErr("readI16Slice", KindIO, "read failed", err)
	}
	return out, nil
}

func readBigram(r io.Reader, n int) ([]BigramEntry, error) {
	keys := make([]uint32, n)
	if err := binary.Read(r, binary.LittleEndian, keys); err != nil {
		return nil, wrapErr("readBigram", KindIO, "bigram_key read failed", err)
	}
	vals := make([]int16, n)
	if err := binary.Read(r, binary.LittleEndian, vals); err != nil {
		return nil, wrapErr("readBigram", KindIO, "logp_bi read failed", err)
	}
	out := make([]BigramEntry, n)
	for i := range out {
		out[i] = BigramEntry{Key: keys[i], LogP: vals[i]}
	}
	return out, nil
}

func readFeatures(r io.Reader, n int) (keys []uint32, weights []int16, err error) {
	keys = make([]uint32, n)
	if err := binary.Read(r, binary.LittleEndian, keys); err != nil {
		return nil, nil, wrapErr("readFeatures", KindIO, "feat_key read failed", err)
	}
	weights = make([]int16, n)
	if err := binary.Read(r, binary.LittleEndian, weights); err != nil {
		return nil, nil, wrapErr("readFeatures", KindIO, "feat_w read failed", err)
	}
	return keys, weights, nil
}

// MarshalModel is a convenience wrapper returning the v2 encoding as
// a byte slice, for callers that want an in-memory model blob.
func MarshalModel(m *Model) ([]byte, error) {
	var buf bytes.Buffer
	if err := SaveModel(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
