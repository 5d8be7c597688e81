// Package importer turns published HTML classification tables into result
// rows ready for submission.
package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/okian/rally/internal/domain/model"
)

type column int

const (
	colPosition column = iota
	colName
	colClass
	colTime
	colPoints
)

// Header spellings seen on timing sites, compared after normalization.
var headerAliases = map[column][]string{
	colPosition: {"pos", "position", "place", "plc", "rank", "#", "nr", "koht"},
	colName:     {"driver", "name", "participant", "competitor", "crew", "driver / co-driver", "driver/co-driver", "võistleja", "juht"},
	colClass:    {"class", "cat", "category", "group", "klass"},
	colTime:     {"time", "total", "total time", "overall", "overall time", "aeg"},
	colPoints:   {"points", "pts", "punktid"},
}

// Markers for rows that did not finish; such rows are kept with position 0.
var retiredMarkers = map[string]struct{}{
	"dnf": {}, "dns": {}, "dsq": {}, "ret": {}, "nc": {}, "dq": {}, "katk": {},
}

// Option applies a configuration option to a parse.
type Option func(*parser)

// WithDefaultClass fills the class of rows whose table has no class column
// or whose class cell is empty.
func WithDefaultClass(class string) Option {
	return func(p *parser) {
		p.defaultClass = strings.TrimSpace(class)
	}
}

type parser struct {
	defaultClass string
}

// ParseHTML reads the first table with a recognizable driver column and
// returns one row per classified or retired entry, in table order.
func ParseHTML(r io.Reader, opts ...Option) ([]model.ResultInput, error) {
	p := &parser{}
	for _, opt := range opts {
		opt(p)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var (
		rows  []model.ResultInput
		found bool
		perr  error
	)
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		headerIdx, cols := findHeader(table)
		if _, ok := cols[colName]; !ok {
			return true
		}
		found = true
		rows, perr = p.parseRows(table, headerIdx, cols)
		return false
	})
	if perr != nil {
		return nil, perr
	}
	if !found {
		return nil, ErrNoResultsTable
	}
	return rows, nil
}

// findHeader returns the index of the first non-empty row and a column
// index per recognized header cell in it.
func findHeader(table *goquery.Selection) (int, map[column]int) {
	headerIdx := -1
	cols := map[column]int{}
	table.Find("tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		cells := tr.Find("th, td")
		if cells.Length() == 0 {
			return true
		}
		cells.Each(func(j int, cell *goquery.Selection) {
			if c, ok := classifyHeader(cell.Text()); ok {
				if _, dup := cols[c]; !dup {
					cols[c] = j
				}
			}
		})
		headerIdx = i
		return false
	})
	return headerIdx, cols
}

func classifyHeader(text string) (column, bool) {
	h := normHeader(text)
	if h == "" {
		return 0, false
	}
	for c, names := range headerAliases {
		for _, n := range names {
			if h == n {
				return c, true
			}
		}
	}
	return 0, false
}

func (p *parser) parseRows(table *goquery.Selection, headerIdx int, cols map[column]int) ([]model.ResultInput, error) {
	out := make([]model.ResultInput, 0)
	var err error
	table.Find("tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if i <= headerIdx {
			return true
		}
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return true
		}
		cell := func(c column) string {
			idx, ok := cols[c]
			if !ok || idx >= cells.Length() {
				return ""
			}
			return normSpace(cells.Eq(idx).Text())
		}

		name := cell(colName)
		if name == "" {
			return true
		}
		row := model.ResultInput{
			ParticipantName: name,
			Class:           cell(colClass),
			Position:        parsePosition(cell(colPosition)),
		}
		if row.Class == "" {
			row.Class = p.defaultClass
		}

		t := cell(colTime)
		if isRetired(t) || isRetired(cell(colPosition)) {
			row.Position = 0
		} else if t != "" {
			ms, terr := ParseTime(t)
			if terr != nil {
				err = fmt.Errorf("row %q: %w", name, terr)
				return false
			}
			row.TotalTimeMS = ms
		}
		if pts, perr := strconv.Atoi(cell(colPoints)); perr == nil && pts >= 0 {
			row.Points = &pts
		}
		out = append(out, row)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// parsePosition reads "1", "1." or "=3"; retirement markers and anything
// else unparseable become 0.
func parsePosition(s string) int {
	s = strings.TrimFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func isRetired(s string) bool {
	_, ok := retiredMarkers[strings.ToLower(strings.Trim(s, ". "))]
	return ok
}

// ParseTime converts "1:02:03.4", "62:03.45" or "59.9" into milliseconds.
// A leading "+" (gap notation) is rejected since it is not a total time.
func ParseTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("%w: %q", ErrBadTime, s)
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrBadTime, s)
	}
	secs, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadTime, s)
	}
	total := int64(secs*1000 + 0.5)

	unit := int64(60_000)
	for i := len(parts) - 2; i >= 0; i-- {
		n, err := strconv.ParseInt(parts[i], 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrBadTime, s)
		}
		total += n * unit
		unit *= 60
	}
	return total, nil
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

func normHeader(s string) string {
	s = strings.ToLower(normSpace(s))
	s = strings.TrimSuffix(s, ":")
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}
