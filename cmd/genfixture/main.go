// Command genfixture writes archive-style monthly CSV fixtures for tests and
// local stub servers. Output is deterministic for a given year and month, and
// every generated page is round-tripped through the real parser so fixtures
// can never drift from what the ingest path accepts.
//
// Usage:
//
//	go run ./cmd/genfixture -year 2024 -month 5 -months 3 -out testdata
//	go run ./cmd/genfixture -year 1998 -month 1 -mojibake -sparse -out testdata
package main

import (
	"bytes"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prairiewx/climate-ingest/internal/domain"
)

// monthMeans are rough Winnipeg daily mean temperatures by month, used as the
// center of the generated values.
var monthMeans = map[time.Month]float64{
	time.January:   -16.4,
	time.February:  -13.2,
	time.March:     -5.8,
	time.April:     4.4,
	time.May:       11.6,
	time.June:      17.0,
	time.July:      19.7,
	time.August:    18.8,
	time.September: 12.7,
	time.October:   5.0,
	time.November:  -4.9,
	time.December:  -13.2,
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	year := flag.Int("year", 2024, "newest year to generate")
	month := flag.Int("month", 1, "newest month to generate (1-12)")
	months := flag.Int("months", 1, "how many consecutive months, walking backwards")
	station := flag.Int("station", 27174, "station ID used in the fixture file names")
	mojibake := flag.Bool("mojibake", false, "emit double-encoded degree signs in the headers")
	sparse := flag.Bool("sparse", false, "blank out some temperature cells the way patchy months do")
	out := flag.String("out", "testdata", "output directory")
	flag.Parse()

	if *month < 1 || *month > 12 {
		flag.Usage()
		return fmt.Errorf("-month must be 1-12, got %d", *month)
	}
	if *months < 1 {
		flag.Usage()
		return fmt.Errorf("-months must be positive, got %d", *months)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ym := domain.YearMonth{Year: *year, Month: time.Month(*month)}
	total := 0
	for i := 0; i < *months; i++ {
		name, days, err := generateMonth(*out, *station, ym, *mojibake, *sparse)
		if err != nil {
			return fmt.Errorf("generate %s: %w", ym.String(), err)
		}
		log.Printf("%s: %d days", name, days)
		total += days
		ym = ym.Prev()
	}

	fmt.Printf("Wrote %d months (%d days) to %s\n", *months, total, *out)
	return nil
}

func generateMonth(dir string, station int, ym domain.YearMonth, mojibake, sparse bool) (string, int, error) {
	text := renderPage(station, ym, mojibake, sparse)

	// Round-trip through the parser so a fixture that the ingest path would
	// reject never lands on disk.
	days := daysIn(ym)
	parsed := domain.ParseMonth(text, ym)
	if len(parsed) != days {
		return "", 0, fmt.Errorf("parser kept %d of %d days", len(parsed), days)
	}

	name := fmt.Sprintf("station%d_%s.csv", station, ym.String())
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return "", 0, err
	}
	return name, days, nil
}

func renderPage(station int, ym domain.YearMonth, mojibake, sparse bool) string {
	degree := "°"
	if mojibake {
		degree = "Â°"
	}

	header := []string{
		"Longitude (x)", "Latitude (y)", "Station Name", "Climate ID",
		"Date/Time", "Year", "Month", "Day", "Data Quality",
		"Max Temp (" + degree + "C)", "Max Temp Flag",
		"Min Temp (" + degree + "C)", "Min Temp Flag",
		"Mean Temp (" + degree + "C)", "Mean Temp Flag",
		"Total Precip (mm)", "Total Precip Flag",
	}

	// Same month, same values. Keeps fixtures stable across regenerations.
	rng := rand.New(rand.NewSource(int64(ym.Year)*100 + int64(ym.Month)))
	mean := monthMeans[ym.Month]

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(header)

	for day := 1; day <= daysIn(ym); day++ {
		swing := rng.Float64()*10 - 5
		dayMean := mean + swing
		dayMax := dayMean + 4 + rng.Float64()*3
		dayMin := dayMean - 4 - rng.Float64()*3

		maxCell, minCell, meanCell := cell(dayMax), cell(dayMin), cell(dayMean)
		maxFlag, minFlag, meanFlag := "", "", ""
		if sparse {
			switch {
			case day%9 == 0:
				maxCell, minCell, meanCell = "", "", ""
				maxFlag, minFlag, meanFlag = "M", "M", "M"
			case day%7 == 0:
				meanCell, meanFlag = "M", "M"
			}
		}

		_ = w.Write([]string{
			"-97.24", "49.92", "WINNIPEG A CS", "5023222",
			fmt.Sprintf("%s-%02d", ym.String(), day),
			strconv.Itoa(ym.Year), fmt.Sprintf("%02d", int(ym.Month)), fmt.Sprintf("%02d", day), "",
			maxCell, maxFlag,
			minCell, minFlag,
			meanCell, meanFlag,
			cell(rng.Float64() * 4), "",
		})
	}

	w.Flush()
	return buf.String()
}

func cell(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func daysIn(ym domain.YearMonth) int {
	return time.Date(ym.Year, ym.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
