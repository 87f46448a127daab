// Package calibration loads the calibration table that seeds the heap
// before compilation: row 1 holds variable names, row 3 holds their
// values (row 2 is a free-form label row, skipped), and the literal
// token "NA" marks a value as unknown rather than a real number.
package calibration

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mdl-lang/mdlc/internal/heap"
	"github.com/mdl-lang/mdlc/internal/mdlerr"
)

// Load reads a calibration CSV file and seeds h with one scalar per
// column whose header is non-empty.
func Load(path string, h *heap.Heap) error {
	f, err := os.Open(path)
	if err != nil {
		return mdlerr.Wrap(mdlerr.IO, err, "open calibration file %q", path)
	}
	defer f.Close()
	return LoadReader(f, h)
}

// LoadReader reads calibration rows from r, the same way Load does.
func LoadReader(r io.Reader, h *heap.Heap) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	names, err := cr.Read()
	if err != nil {
		return mdlerr.Wrap(mdlerr.IO, err, "read calibration header row")
	}
	if _, err := cr.Read(); err != nil { // row 2: labels, not used
		return mdlerr.Wrap(mdlerr.IO, err, "read calibration label row")
	}
	values, err := cr.Read()
	if err != nil {
		return mdlerr.Wrap(mdlerr.IO, err, "read calibration value row")
	}

	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var raw string
		if i < len(values) {
			raw = strings.TrimSpace(values[i])
		}
		if raw == "" || strings.EqualFold(raw, "NA") {
			h.SetScalar(strings.ToUpper(name), heap.Unknown())
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return mdlerr.New(mdlerr.Parse, "calibration value for %q is not a number: %q", name, raw)
		}
		h.SetScalar(strings.ToUpper(name), heap.NewScalar(v))
	}
	return nil
}
