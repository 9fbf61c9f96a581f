package mmjp

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/lwch/logging"
)

// Text CRF config format. Whitespace-tolerant, `#`/`;` comment lines,
// `trans00 = <float>` style scalar assignments, and
// `feat <tid> <label> <v1> <v2> = <weight>` lines (the `=` is
// optional).

// ParseCRFConfig reads a text CRF config from r into a fresh
// TrainableCRF, keeping scalars and weights as float64 (Q8.8
// conversion happens later, in Export). Unknown feature keys (out of range tid/label/v1/v2) are
// logged and skipped rather than failing the parse.
func ParseCRFConfig(r io.Reader) (*TrainableCRF, error) {
	c := &TrainableCRF{Feat: make(map[uint32]float64)}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, ";") {
			continue
		}
		if err := parseCRFConfigLine(c, text, line); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, wrapErr("ParseCRFConfig", KindIO, "scan failed", err)
	}
	return c, nil
}

func parseCRFConfigLine(c *TrainableCRF, text string, line int) error {
	if strings.HasPrefix(text, "feat") {
		return parseFeatLine(c, text, line)
	}
	key, val, ok := strings.Cut(text, "=")
	if !ok {
		return newErr("ParseCRFConfig", KindBadArg, fmt.Sprintf("line %d: expected '=' assignment", line))
	}
	key = strings.TrimSpace(key)
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return wrapErr("ParseCRFConfig", KindBadArg, fmt.Sprintf("line %d: bad float", line), err)
	}
	switch key {
	case "trans00":
		c.Trans00 = f
	case "trans01":
		c.Trans01 = f
	case "trans10":
		c.Trans10 = f
	case "trans11":
		c.Trans11 = f
	case "bos_to1":
		c.BOSTo1 = f
	default:
		return newErr("ParseCRFConfig", KindBadArg, fmt.Sprintf("line %d: unknown key %q", line, key))
	}
	return nil
}

// parseFeatLine handles both `feat <tid> <label> <v1> <v2> = <w>` and
// the same without `=`.
func parseFeatLine(c *TrainableCRF, text string, line int) error {
	text = strings.TrimPrefix(text, "feat")
	text = strings.ReplaceAll(text, "=", " ")
	fields := strings.Fields(text)
	if len(fields) != 5 {
		return newErr("ParseCRFConfig", KindBadArg, fmt.Sprintf("line %d: feat needs 4 ints and a weight", line))
	}
	ints := make([]int64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			return wrapErr("ParseCRFConfig", KindBadArg, fmt.Sprintf("line %d: bad feat field", line), err)
		}
		ints[i] = v
	}
	w, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return wrapErr("ParseCRFConfig", KindBadArg, fmt.Sprintf("line %d: bad feat weight", line), err)
	}
	tid, label, v1, v2 := ints[0], ints[1], ints[2], ints[3]
	if tid < 0 || tid > 255 || label < 0 || label > 1 || v1 < 0 || v1 > 255 || v2 < 0 || v2 > 255 {
		logging.Info("crf config line %d: feature key out of range, ignored", line)
		return nil
	}
	key := FeatureKey(uint8(tid), uint8(label), uint8(v1), uint8(v2))
	c.Feat[key] = w
	return nil
}

// WriteCRFConfig writes c to w in the §6.2 text format, scalars first
// then feature lines sorted by key for a stable diff.
func WriteCRFConfig(w io.Writer, c *TrainableCRF) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "trans00 = %g\n", c.Trans00)
	fmt.Fprintf(bw, "trans01 = %g\n", c.Trans01)
	fmt.Fprintf(bw, "trans10 = %g\n", c.Trans10)
	fmt.Fprintf(bw, "trans11 = %g\n", c.Trans11)
	fmt.Fprintf(bw, "bos_to1 = %g\n", c.BOSTo1)
	keys := sortedFeatKeys(c.Feat)
	for _, key := range keys {
		tid := uint8(key >> 24)
		label := uint8(key >> 16)
		v1 := uint8(key >> 8)
		v2 := uint8(key)
		fmt.Fprintf(bw, "feat %d %d %d %d = %g\n", tid, label, v1, v2, c.Feat[key])
	}
	if err := bw.Flush(); err != nil {
		return wrapErr("WriteCRFConfig", KindIO, "flush failed", err)
	}
	return nil
}

func sortedFeatKeys(m map[uint32]float64) []uint32 {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
