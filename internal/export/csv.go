package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the header line and the rows.
func WriteCSV(w io.Writer, s Sheet) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(s.Values()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
