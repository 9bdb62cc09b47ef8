package geo

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// Columns is the GeoNames postal code column order. The dumps carry no header.
var Columns = [...]string{
	"country_code",
	"postal_code",
	"place_name",
	"admin_name1",
	"admin_code1",
	"admin_name2",
	"admin_code2",
	"admin_name3",
	"admin_code3",
	"latitude",
	"longitude",
	"accuracy",
}

// minColumns is the smallest row accepted; accuracy may be missing.
const minColumns = len(Columns) - 1

const maxLineBytes = 1 << 20

// ParseStats counts rows seen by a parse. Values are final once the sequence
// returned by Parse has been fully consumed or stopped.
type ParseStats struct {
	Total  int
	Failed int
	// Err is the read error that ended the stream early, if any.
	Err error
}

// Valid returns the number of rows that produced a record.
func (s *ParseStats) Valid() int {
	return s.Total - s.Failed
}

// Parse streams tab-separated GeoNames rows from r, yielding the normalized
// postal code with its record. Rows that fail validation are counted and
// dropped. The sequence is single-use because it consumes r.
//
// Quotes carry no meaning in these dumps, so rows are split on tabs only.
func Parse(r io.Reader, logger *slog.Logger) (iter.Seq2[string, Record], *ParseStats) {
	if logger == nil {
		logger = slog.Default()
	}
	stats := &ParseStats{}

	seq := func(yield func(string, Record) bool) {
		defer func() {
			logger.Info("postal code rows parsed",
				"total", stats.Total,
				"failed", stats.Failed,
			)
		}()

		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		line := 0
		for sc.Scan() {
			line++
			text := strings.TrimRight(sc.Text(), "\r")
			if strings.TrimSpace(text) == "" {
				continue
			}
			stats.Total++

			rec, err := ParseRow(strings.Split(text, "\t"))
			if err != nil {
				stats.Failed++
				logger.Debug("row rejected", "line", line, "error", err)
				continue
			}
			if !yield(rec.Key(), rec) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			stats.Err = err
			logger.Error("postal code stream ended early", "line", line, "error", err)
		}
	}
	return seq, stats
}

var errEmptyField = errors.New("empty")

// ParseRow validates one split row and builds its record.
func ParseRow(fields []string) (Record, error) {
	if len(fields) < minColumns {
		return Record{}, fmt.Errorf("got %d columns, want at least %d", len(fields), minColumns)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	rec := Record{
		CountryCode: fields[0],
		PostalCode:  fields[1],
		PlaceName:   fields[2],
		AdminName1:  fields[3],
		AdminCode1:  fields[4],
		AdminName2:  fields[5],
		AdminCode2:  fields[6],
		AdminName3:  fields[7],
		AdminCode3:  fields[8],
	}
	if rec.CountryCode == "" {
		return Record{}, fmt.Errorf("country_code: %w", errEmptyField)
	}
	if rec.PostalCode == "" || rec.Key() == "" {
		return Record{}, fmt.Errorf("postal_code: %w", errEmptyField)
	}

	var err error
	if rec.Latitude, err = parseCoord(fields[9], 90); err != nil {
		return Record{}, fmt.Errorf("latitude: %w", err)
	}
	if rec.Longitude, err = parseCoord(fields[10], 180); err != nil {
		return Record{}, fmt.Errorf("longitude: %w", err)
	}
	if len(fields) > 11 && fields[11] != "" {
		if rec.Accuracy, err = parseFinite(fields[11]); err != nil {
			return Record{}, fmt.Errorf("accuracy: %w", err)
		}
	}
	return rec, nil
}

func parseCoord(s string, limit float64) (float64, error) {
	v, err := parseFinite(s)
	if err != nil {
		return 0, err
	}
	if math.Abs(v) > limit {
		return 0, fmt.Errorf("%v out of range", v)
	}
	return v, nil
}

func parseFinite(s string) (float64, error) {
	if s == "" {
		return 0, errEmptyField
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return v, nil
}
