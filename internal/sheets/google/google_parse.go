package google

import (
	"strconv"
	"strings"
)

// quoteSheet renders a tab name for A1 notation. Names are always quoted;
// embedded quotes are doubled.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func toInterfaces(values [][]string) [][]interface{} {
	out := make([][]interface{}, len(values))
	for i, row := range values {
		r := make([]interface{}, len(row))
		for j, v := range row {
			r[j] = v
		}
		out[i] = r
	}
	return out
}

// columnName converts a 1-based column index to its letters: 1 is A, 27 is AA.
func columnName(n int) string {
	if n <= 0 {
		return ""
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// tableRange is the A1 range covered by values written at A1.
func tableRange(tab string, values [][]string) string {
	cols := 0
	for _, row := range values {
		cols = max(cols, len(row))
	}
	if cols == 0 || len(values) == 0 {
		return quoteSheet(tab) + "!A1"
	}
	return quoteSheet(tab) + "!A1:" + columnName(cols) + strconv.Itoa(len(values))
}
