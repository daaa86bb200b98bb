package assemble

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/zonwacht/pvyield/internal/domain"
)

// WriteCSV writes the dataset in the layout the training stage consumes:
// key columns first, features in schema order, target last.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(d.Schema.Columns)+3)
	header = append(header, "installation_id", "date")
	header = append(header, d.Schema.Columns...)
	header = append(header, "yield_kwh")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range d.Rows {
		record = record[:0]
		record = append(record, row.InstallationID, domain.DateKey(row.Date))
		for _, v := range row.Features {
			record = append(record, formatFloat(v))
		}
		record = append(record, formatFloat(row.YieldKWh))
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
