package orders

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/openacq/orderline/pkg/logging"
)

// lineNumberPattern matches `<poNumber>-<sequence>` line numbers. The suffix
// is a positive integer unique within the parent order.
var lineNumberPattern = regexp.MustCompile(`^([a-zA-Z0-9]{1,16})-([0-9]{1,3})$`)

// BuildLineNumber formats a line number from a PO number and a sequence.
func BuildLineNumber(poNumber string, sequence int) string {
	return fmt.Sprintf("%s-%d", poNumber, sequence)
}

// LineNumberSuffix extracts the numeric sequence from a line number.
// It returns 0 when the number does not match the expected pattern.
func LineNumberSuffix(lineNumber string) int {
	m := lineNumberPattern.FindStringSubmatch(lineNumber)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[2])
	return n
}

// RebuildLineNumber rebuilds a stored line's number against a new PO number,
// preserving the stored sequence suffix. An invalid stored number is kept
// unchanged and logged.
func RebuildLineNumber(stored *Line, poNumber string) string {
	m := lineNumberPattern.FindStringSubmatch(stored.LineNumber)
	if m == nil {
		logging.Error().
			Str("line_id", stored.ID).
			Str("line_number", stored.LineNumber).
			Msg("Line has invalid or missing number")
		return stored.LineNumber
	}
	return poNumber + "-" + m[2]
}

// SortByLineNumber orders lines by their numeric line-number suffix.
func SortByLineNumber(lines []*Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		return LineNumberSuffix(lines[i].LineNumber) < LineNumberSuffix(lines[j].LineNumber)
	})
}
