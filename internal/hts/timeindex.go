package hts

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Frequency is the time granularity of a dataset. All period strings in one
// dataset must parse to the same frequency.
type Frequency int

const (
	Annual Frequency = iota + 1
	Quarterly
	Monthly
	Weekly
	Daily
)

func (f Frequency) String() string {
	switch f {
	case Annual:
		return "annual"
	case Quarterly:
		return "quarterly"
	case Monthly:
		return "monthly"
	case Weekly:
		return "weekly"
	case Daily:
		return "daily"
	default:
		return "unknown"
	}
}

// Period is one parsed time period at a fixed frequency. Periods of the same
// frequency are totally ordered; ordering across frequencies is undefined and
// prevented at build time.
type Period struct {
	Freq Frequency
	Year int
	// Sub encodes the position within the year: quarter (1-4), month (1-12),
	// week (1-53), month*100+day for daily, 0 for annual.
	Sub int
}

// Before reports whether p precedes q chronologically.
func (p Period) Before(q Period) bool {
	return p.key() < q.key()
}

func (p Period) key() int {
	return p.Year*10000 + p.Sub
}

// String returns the canonical form of the period, re-parseable by
// ParsePeriod.
func (p Period) String() string {
	switch p.Freq {
	case Annual:
		return fmt.Sprintf("%04d", p.Year)
	case Quarterly:
		return fmt.Sprintf("%04d Q%d", p.Year, p.Sub)
	case Monthly:
		return fmt.Sprintf("%04d M%02d", p.Year, p.Sub)
	case Weekly:
		return fmt.Sprintf("%04d W%02d", p.Year, p.Sub)
	case Daily:
		return fmt.Sprintf("%04d-%02d-%02d", p.Year, p.Sub/100, p.Sub%100)
	default:
		return "invalid"
	}
}

// ParsePeriod parses one period string. Accepted forms: "YYYY", "YYYY Qn",
// "YYYY Mnn", "YYYY Wnn" and "YYYY-MM-DD".
func ParsePeriod(raw string) (Period, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Period{}, &TimeParseError{Value: raw, Reason: "empty period string"}
	}

	if strings.Contains(s, "-") {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return Period{}, &TimeParseError{Value: raw, Reason: "not a valid YYYY-MM-DD date"}
		}
		return Period{Freq: Daily, Year: t.Year(), Sub: int(t.Month())*100 + t.Day()}, nil
	}

	fields := strings.Fields(s)
	year, err := strconv.Atoi(fields[0])
	if err != nil || len(fields[0]) != 4 {
		return Period{}, &TimeParseError{Value: raw, Reason: "expected a 4-digit year"}
	}

	if len(fields) == 1 {
		return Period{Freq: Annual, Year: year}, nil
	}
	if len(fields) != 2 || len(fields[1]) < 2 {
		return Period{}, &TimeParseError{Value: raw, Reason: "unrecognized period format"}
	}

	n, err := strconv.Atoi(fields[1][1:])
	if err != nil {
		return Period{}, &TimeParseError{Value: raw, Reason: "sub-period is not a number"}
	}

	switch fields[1][0] {
	case 'Q':
		if n < 1 || n > 4 {
			return Period{}, &TimeParseError{Value: raw, Reason: "quarter out of range 1-4"}
		}
		return Period{Freq: Quarterly, Year: year, Sub: n}, nil
	case 'M':
		if n < 1 || n > 12 {
			return Period{}, &TimeParseError{Value: raw, Reason: "month out of range 1-12"}
		}
		return Period{Freq: Monthly, Year: year, Sub: n}, nil
	case 'W':
		if n < 1 || n > 53 {
			return Period{}, &TimeParseError{Value: raw, Reason: "week out of range 1-53"}
		}
		return Period{Freq: Weekly, Year: year, Sub: n}, nil
	default:
		return Period{}, &TimeParseError{Value: raw, Reason: "unrecognized period format"}
	}
}

// TimeIndex collects the distinct periods of a dataset while enforcing a
// single frequency across all of them.
type TimeIndex struct {
	freq  Frequency
	seen  map[Period]int
	order []Period
}

func NewTimeIndex() *TimeIndex {
	return &TimeIndex{seen: make(map[Period]int)}
}

// Add parses raw and records its period. The first period fixes the dataset
// frequency; any later period at a different frequency is a TimeParseError.
func (ti *TimeIndex) Add(raw string) (Period, error) {
	p, err := ParsePeriod(raw)
	if err != nil {
		return Period{}, err
	}
	if ti.freq == 0 {
		ti.freq = p.Freq
	} else if p.Freq != ti.freq {
		return Period{}, &TimeParseError{
			Value:  raw,
			Reason: fmt.Sprintf("mixed frequencies: dataset is %s, got %s", ti.freq, p.Freq),
		}
	}
	if _, ok := ti.seen[p]; !ok {
		ti.seen[p] = len(ti.order)
		ti.order = append(ti.order, p)
	}
	return p, nil
}

// Frequency returns the dataset frequency, or 0 before any period was added.
func (ti *TimeIndex) Frequency() Frequency { return ti.freq }

// Len returns the number of distinct periods.
func (ti *TimeIndex) Len() int { return len(ti.order) }

// Periods returns the distinct periods in chronological order.
func (ti *TimeIndex) Periods() []Period {
	out := make([]Period, len(ti.order))
	copy(out, ti.order)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
