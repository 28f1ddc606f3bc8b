// Package dataset reads the upload workbook locally, producing the same
// Dataset the transform endpoint returns.
package dataset

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/siteopt/internal/model"
)

// Sheet and column names expected in the workbook.
const (
	SheetBarangays = "Barangays"
	SheetSites     = "Sites"

	colLatitude     = "latitude"
	colLongitude    = "longitude"
	colName         = "Name"
	colBarangayName = "Barangay_name"
	colPopulation   = "population"
	colInfected     = "infected"
	colMunicipality = "Municipality"
)

var (
	barangayColumns = []string{colInfected, colPopulation, colLatitude, colLongitude, colBarangayName}
	siteColumns     = []string{colLatitude, colLongitude, colName}
)

// FormatError reports a workbook that does not have the expected shape.
type FormatError struct {
	Sheet  string
	Row    int // 1-based spreadsheet row, 0 when not row specific
	Column string
	Reason string
}

func (e *FormatError) Error() string {
	switch {
	case e.Row > 0:
		return fmt.Sprintf("dataset: %s row %d column %s: %s", e.Sheet, e.Row, e.Column, e.Reason)
	case e.Sheet != "":
		return fmt.Sprintf("dataset: %s: %s", e.Sheet, e.Reason)
	default:
		return "dataset: " + e.Reason
	}
}

// ReadFile parses the workbook at path.
func ReadFile(path string) (*model.Dataset, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open file")
	}
	return Parse(f)
}

// Read parses a workbook from r.
func Read(r io.Reader) (*model.Dataset, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read workbook")
	}
	f, err := xlsx.OpenBinary(b)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open workbook")
	}
	return Parse(f)
}

// Parse converts an opened workbook into a Dataset. Blank names become ""
// and blank counts become 0; blank or non-numeric coordinates are errors.
func Parse(f *xlsx.File) (*model.Dataset, error) {
	for _, name := range []string{SheetBarangays, SheetSites} {
		if _, ok := f.Sheet[name]; !ok {
			return nil, &FormatError{Reason: "missing required sheet: " + name}
		}
	}

	ds := &model.Dataset{}
	if err := readBarangays(f.Sheet[SheetBarangays], &ds.Barangays); err != nil {
		return nil, err
	}
	if err := readSites(f.Sheet[SheetSites], &ds.Sites); err != nil {
		return nil, err
	}

	zap.L().Debug("dataset: parsed workbook",
		zap.Int("sites", len(ds.Sites.Locations)),
		zap.Int("barangays", len(ds.Barangays.Locations)),
	)
	return ds, nil
}

func readBarangays(sheet *xlsx.Sheet, out *model.BarangayColumns) error {
	t, err := newTable(sheet, barangayColumns)
	if err != nil {
		return err
	}
	_, hasMunicipality := t.cols[colMunicipality]

	for _, r := range t.rows {
		loc, err := t.location(r)
		if err != nil {
			return err
		}
		pop, err := t.count(r, colPopulation)
		if err != nil {
			return err
		}
		infected, err := t.count(r, colInfected)
		if err != nil {
			return err
		}
		out.Locations = append(out.Locations, loc)
		out.Names = append(out.Names, t.text(r, colBarangayName))
		out.Populations = append(out.Populations, pop)
		out.Infected = append(out.Infected, infected)
		if hasMunicipality {
			out.Municipality = append(out.Municipality, t.text(r, colMunicipality))
		}
	}
	return nil
}

func readSites(sheet *xlsx.Sheet, out *model.SiteColumns) error {
	t, err := newTable(sheet, siteColumns)
	if err != nil {
		return err
	}
	for _, r := range t.rows {
		loc, err := t.location(r)
		if err != nil {
			return err
		}
		out.Locations = append(out.Locations, loc)
		out.Names = append(out.Names, t.text(r, colName))
	}
	return nil
}

// table is a sheet with a header row, indexed by column name.
type table struct {
	sheet string
	cols  map[string]int
	rows  []row
}

type row struct {
	num   int // 1-based spreadsheet row
	cells []string
}

func newTable(sheet *xlsx.Sheet, required []string) (*table, error) {
	t := &table{sheet: sheet.Name, cols: make(map[string]int)}
	if len(sheet.Rows) == 0 || sheet.Rows[0] == nil || blank(rowToStrings(sheet.Rows[0])) {
		return nil, &FormatError{Sheet: sheet.Name, Reason: "sheet is empty"}
	}

	for i, h := range rowToStrings(sheet.Rows[0]) {
		h = strings.TrimSpace(h)
		if _, dup := t.cols[h]; h != "" && !dup {
			t.cols[h] = i
		}
	}
	for _, c := range required {
		if _, ok := t.cols[c]; !ok {
			return nil, &FormatError{
				Sheet:  sheet.Name,
				Reason: fmt.Sprintf("sheet must contain columns: %s (missing %s)", strings.Join(required, ", "), c),
			}
		}
	}

	for i, r := range sheet.Rows[1:] {
		if r == nil {
			continue
		}
		cells := rowToStrings(r)
		if blank(cells) {
			continue
		}
		t.rows = append(t.rows, row{num: i + 2, cells: cells})
	}
	return t, nil
}

func (t *table) text(r row, col string) string {
	i := t.cols[col]
	if i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (t *table) number(r row, col string) (float64, bool, error) {
	s := t.text(r, col)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, &FormatError{Sheet: t.sheet, Row: r.num, Column: col, Reason: fmt.Sprintf("%q is not a number", s)}
	}
	return v, true, nil
}

func (t *table) location(r row) (model.LatLng, error) {
	lat, ok, err := t.number(r, colLatitude)
	if err != nil {
		return model.LatLng{}, err
	}
	if !ok {
		return model.LatLng{}, &FormatError{Sheet: t.sheet, Row: r.num, Column: colLatitude, Reason: "value is required"}
	}
	lon, ok, err := t.number(r, colLongitude)
	if err != nil {
		return model.LatLng{}, err
	}
	if !ok {
		return model.LatLng{}, &FormatError{Sheet: t.sheet, Row: r.num, Column: colLongitude, Reason: "value is required"}
	}
	ll := model.LatLng{Lat: lat, Lon: lon}
	if !ll.Valid() {
		return model.LatLng{}, &FormatError{Sheet: t.sheet, Row: r.num, Column: colLatitude, Reason: fmt.Sprintf("(%g, %g) is out of range", lat, lon)}
	}
	return ll, nil
}

// count truncates toward zero like an integer cast; blank is 0.
func (t *table) count(r row, col string) (int, error) {
	v, _, err := t.number(r, col)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > math.MaxInt32 {
		return 0, &FormatError{Sheet: t.sheet, Row: r.num, Column: col, Reason: fmt.Sprintf("%s is not a valid count", t.text(r, col))}
	}
	return int(v), nil
}

func rowToStrings(r *xlsx.Row) []string {
	cells := make([]string, len(r.Cells))
	for j, cell := range r.Cells {
		if cell == nil {
			continue
		}
		cells[j] = cell.Value
	}
	return cells
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
