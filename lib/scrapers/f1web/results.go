package f1web

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/itsmrval/willitbemax/lib/f1"

	"github.com/PuerkitoBio/goquery"
)

var (
	trailingCodeRe = regexp.MustCompile(`[A-Z]{3}$`)
	numericCellRe  = regexp.MustCompile(`^\d+$`)
)

// parseResults turns the first results table in the document into
// finishing-order rows. Rows that fail to parse are skipped, never
// fatal.
func parseResults(doc *goquery.Document) []f1.SessionResult {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil
	}

	var results []f1.SessionResult
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})

		result, ok := parseResultRow(cells)
		if ok {
			results = append(results, result)
		}
	})
	return results
}

// parseResultRow interprets one body row of a results table. Cell 4
// disambiguates race from non-race layouts: a purely numeric cell 4 is
// a lap count and cell 5 (if present) the time; otherwise cell 4 is
// the time and laps default to 0.
func parseResultRow(cells []string) (f1.SessionResult, bool) {
	if len(cells) < 5 {
		return f1.SessionResult{}, false
	}

	position := firstInt(cells[0])
	driverNumber := firstInt(cells[1])

	rawName := cells[2]
	driverCode := trailingCodeRe.FindString(rawName)
	driverName := strings.TrimSpace(trailingCodeRe.ReplaceAllString(rawName, ""))
	if driverName == "" {
		driverName = rawName
	}

	team := cells[3]

	var lapCount int
	var raceTime string
	if numericCellRe.MatchString(cells[4]) {
		lapCount, _ = strconv.Atoi(cells[4])
		if len(cells) > 5 {
			raceTime = cells[5]
		}
	} else {
		raceTime = cells[4]
	}

	return f1.SessionResult{
		Position:     position,
		DriverNumber: driverNumber,
		DriverName:   driverName,
		DriverCode:   driverCode,
		Team:         team,
		Time:         raceTime,
		Laps:         lapCount,
	}, true
}

// firstInt extracts the first digit run in a cell, 0 when absent.
func firstInt(s string) int {
	run := digitRunRe.FindString(s)
	if run == "" {
		return 0
	}
	n, _ := strconv.Atoi(run)
	return n
}
