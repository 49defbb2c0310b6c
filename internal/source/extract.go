package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/silvics/cbmconv/internal/events"
)

// Extract column headers with fixed meaning. Every other header is treated
// as a classifier value column, in file order.
const (
	extractColDefaultSPU      = "default_spuid"
	extractColSPU             = "spuid"
	extractColDisturbanceType = "disturbance_type"
	extractColTimestep        = "timestep"
	extractColArea            = "area"
)

// LoadExtract reads a flat disturbance extract (CSV, one disturbed record
// per timestep). Header names are matched case-insensitively; the spatial
// id columns may be empty on any row.
//
// A malformed extract is fatal: unlike per-row metadata problems, a file
// the parser cannot read leaves nothing to reconcile.
func LoadExtract(path string) ([]events.ExtractRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open extract: %w", err)
	}
	defer f.Close()

	rows, err := ReadExtract(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadExtract parses extract CSV content.
func ReadExtract(r io.Reader) ([]events.ExtractRow, error) {
	cr := newExtractReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read extract header: %w", err)
	}
	layout, err := parseExtractHeader(header)
	if err != nil {
		return nil, err
	}

	var out []events.ExtractRow
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read extract: %w", err)
		}
		line++
		row, err := layout.parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("extract line %d: %w", line, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func newExtractReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	return cr
}

// extractLayout maps header positions to row fields.
type extractLayout struct {
	defaultSPU      int
	spu             int
	disturbanceType int
	timestep        int
	area            int
	classifiers     []int // positions of classifier value columns, file order
}

func parseExtractHeader(header []string) (*extractLayout, error) {
	layout := &extractLayout{defaultSPU: -1, spu: -1, disturbanceType: -1, timestep: -1, area: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case extractColDefaultSPU:
			layout.defaultSPU = i
		case extractColSPU:
			layout.spu = i
		case extractColDisturbanceType:
			layout.disturbanceType = i
		case extractColTimestep:
			layout.timestep = i
		case extractColArea:
			layout.area = i
		default:
			layout.classifiers = append(layout.classifiers, i)
		}
	}
	for _, missing := range []struct {
		name string
		pos  int
	}{
		{extractColDisturbanceType, layout.disturbanceType},
		{extractColTimestep, layout.timestep},
		{extractColArea, layout.area},
	} {
		if missing.pos < 0 {
			return nil, fmt.Errorf("extract header lacks required column %q", missing.name)
		}
	}
	return layout, nil
}

func (l *extractLayout) parseRow(record []string) (events.ExtractRow, error) {
	var row events.ExtractRow
	var err error

	if l.defaultSPU >= 0 {
		if row.DefaultSPUID, err = parseOptionalID(record[l.defaultSPU]); err != nil {
			return row, fmt.Errorf("column %q: %w", extractColDefaultSPU, err)
		}
	}
	if l.spu >= 0 {
		if row.SPUID, err = parseOptionalID(record[l.spu]); err != nil {
			return row, fmt.Errorf("column %q: %w", extractColSPU, err)
		}
	}
	row.DisturbanceType = strings.TrimSpace(record[l.disturbanceType])

	if row.Timestep, err = strconv.ParseInt(strings.TrimSpace(record[l.timestep]), 10, 64); err != nil {
		return row, fmt.Errorf("column %q: %w", extractColTimestep, err)
	}
	if row.Area, err = strconv.ParseFloat(strings.TrimSpace(record[l.area]), 64); err != nil {
		return row, fmt.Errorf("column %q: %w", extractColArea, err)
	}

	row.ClassifierValues = make([]string, len(l.classifiers))
	for i, pos := range l.classifiers {
		row.ClassifierValues[i] = strings.TrimSpace(record[pos])
	}
	return row, nil
}

func parseOptionalID(field string) (*int64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
