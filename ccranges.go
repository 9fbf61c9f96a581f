package mmjp

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Text cc_ranges format: one range per line, `start end class_id`,
// decimal or 0x-prefixed hex, `#` comments.

// ParseCCRanges reads a cc_ranges text file from r, validating bounds
// and sorting ascending by Lo, then rejecting any range whose start
// falls inside the previous range (ranges must not overlap once
// sorted).
func ParseCCRanges(r io.Reader) ([]ClassRange, error) {
	var ranges []ClassRange
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, newErr("ParseCCRanges", KindBadArg, fmt.Sprintf("line %d: expected 'start end class_id'", line))
		}
		lo, err := parseCCInt(fields[0])
		if err != nil {
			return nil, wrapErr("ParseCCRanges", KindBadArg, fmt.Sprintf("line %d: bad start", line), err)
		}
		hi, err := parseCCInt(fields[1])
		if err != nil {
			return nil, wrapErr("ParseCCRanges", KindBadArg, fmt.Sprintf("line %d: bad end", line), err)
		}
		cls, err := parseCCInt(fields[2])
		if err != nil {
			return nil, wrapErr("ParseCCRanges", KindBadArg, fmt.Sprintf("line %d: bad class_id", line), err)
		}
		if lo > hi {
			return nil, newErr("ParseCCRanges", KindBadArg, fmt.Sprintf("line %d: start > end", line))
		}
		if hi > maxRune {
			return nil, newErr("ParseCCRanges", KindBadArg, fmt.Sprintf("line %d: end exceeds Unicode range", line))
		}
		if cls > 255 {
			return nil, newErr("ParseCCRanges", KindBadArg, fmt.Sprintf("line %d: class_id exceeds 255", line))
		}
		ranges = append(ranges, ClassRange{Lo: lo, Hi: hi, Class: uint8(cls)})
	}
	if err := sc.Err(); err != nil {
		return nil, wrapErr("ParseCCRanges", KindIO, "scan failed", err)
	}

	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Lo < ranges[j].Lo })
	for i := 1; i < len(ranges); i++ {
		if ranges[i].Lo <= ranges[i-1].Hi {
			return nil, newErr("ParseCCRanges", KindBadArg, "ranges overlap after sort")
		}
	}
	return ranges, nil
}

func parseCCInt(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// WriteCCRanges writes ranges to w in the §6.3 text format, decimal,
// one per line, already assumed sorted ascending by Lo.
func WriteCCRanges(w io.Writer, ranges []ClassRange) error {
	bw := bufio.NewWriter(w)
	for _, r := range ranges {
		fmt.Fprintf(bw, "%d %d %d\n", r.Lo, r.Hi, r.Class)
	}
	if err := bw.Flush(); err != nil {
		return wrapErr("WriteCCRanges", KindIO, "flush failed", err)
	}
	return nil
}
