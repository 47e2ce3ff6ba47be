package ephemeris

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// TableSource serves positions from tabulated files, one per body:
//
//	<dir>/<body>.csv   rows of "jd,lon,lat" in ascending jd order
//
// Lines starting with '#' and a non-numeric header row are ignored.
// Tables are loaded once and never mutated, so lookups are safe for concurrent use.
type TableSource struct {
	dir    string
	tables map[Body]*table
}

type table struct {
	jd  []float64
	lon []float64 // unwrapped, continuous across 0/360
	lat []float64
}

// OpenTables loads every table present under dir. A missing directory yields an
// empty source; malformed files are skipped and reported in the joined error.
func OpenTables(dir string) (*TableSource, error) {
	ts := &TableSource{dir: dir, tables: make(map[Body]*table)}
	if dir == "" {
		return ts, nil
	}
	var errs []error
	for _, b := range Bodies() {
		path := filepath.Join(dir, b.FileKey()+".csv")
		t, err := loadTable(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		ts.tables[b] = t
	}
	return ts, errors.Join(errs...)
}

// Loaded reports the bodies that have a table.
func (s *TableSource) Loaded() []Body {
	out := make([]Body, 0, len(s.tables))
	for _, b := range Bodies() {
		if _, ok := s.tables[b]; ok {
			out = append(out, b)
		}
	}
	return out
}

func (s *TableSource) Position(jd float64, body Body) (Position, error) {
	t, ok := s.tables[body]
	if !ok {
		return Position{}, ErrDataFileMissing
	}
	if jd < t.jd[0] || jd > t.jd[len(t.jd)-1] {
		return Position{}, ErrOutOfRange
	}
	lo, hi := t.window(jd)
	xs := t.jd[lo:hi]
	lon := lagrange(xs, t.lon[lo:hi], jd)
	const h = 0.01
	speed := (lagrange(xs, t.lon[lo:hi], jd+h) - lagrange(xs, t.lon[lo:hi], jd-h)) / (2 * h)
	return Position{
		Longitude: rev(lon),
		Latitude:  lagrange(xs, t.lat[lo:hi], jd),
		Speed:     speed,
	}, nil
}

// window selects up to four samples around jd.
func (t *table) window(jd float64) (int, int) {
	n := len(t.jd)
	i := sort.SearchFloat64s(t.jd, jd)
	lo := i - 2
	if lo < 0 {
		lo = 0
	}
	hi := lo + 4
	if hi > n {
		hi = n
		lo = hi - 4
		if lo < 0 {
			lo = 0
		}
	}
	return lo, hi
}

func lagrange(xs, ys []float64, x float64) float64 {
	var sum float64
	for i := range xs {
		term := ys[i]
		for j := range xs {
			if i != j {
				term *= (x - xs[j]) / (xs[i] - xs[j])
			}
		}
		sum += term
	}
	return sum
}

func loadTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	t := &table{}
	row := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row++
		if len(rec) < 3 {
			return nil, fmt.Errorf("row %d: want 3 columns, got %d", row, len(rec))
		}
		vals, err := parseRow(rec[:3])
		if err != nil {
			if row == 1 {
				continue // header
			}
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if n := len(t.jd); n > 0 && vals[0] <= t.jd[n-1] {
			return nil, fmt.Errorf("row %d: jd %.5f not ascending", row, vals[0])
		}
		lon := vals[1]
		if n := len(t.lon); n > 0 {
			lon = t.lon[n-1] + signedDelta(t.lon[n-1], lon)
		}
		t.jd = append(t.jd, vals[0])
		t.lon = append(t.lon, lon)
		t.lat = append(t.lat, vals[2])
	}
	if len(t.jd) < 2 {
		return nil, fmt.Errorf("need at least 2 rows, got %d", len(t.jd))
	}
	return t, nil
}

func parseRow(rec []string) ([3]float64, error) {
	var out [3]float64
	for i, s := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}
