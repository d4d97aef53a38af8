package hts

import "fmt"

// SpecError reports an invalid hierarchy/group specification: duplicate or
// empty column names, a column listed as both hierarchical and grouped, or a
// spec column missing from the bottom-level schema.
type SpecError struct {
	Column string
	Reason string
}

func (e *SpecError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("invalid spec: %s", e.Reason)
	}
	return fmt.Sprintf("invalid spec: column %q: %s", e.Column, e.Reason)
}

// SchemaError reports a bottom-level row that does not match the declared
// schema: a missing category/time/value column, a non-numeric value, or a
// category value containing the label separator.
type SchemaError struct {
	Row    int
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error at row %d, column %q: %s", e.Row, e.Column, e.Reason)
}

// TimeParseError reports an unparseable period string, or a dataset that
// mixes period frequencies.
type TimeParseError struct {
	Value  string
	Reason string
}

func (e *TimeParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("time parse error: %s", e.Reason)
	}
	return fmt.Sprintf("time parse error: %q: %s", e.Value, e.Reason)
}

// InconsistentPanelError reports a bottom-level series observed more than
// once for the same period. Duplicates are ambiguous and never summed.
type InconsistentPanelError struct {
	Series string
	Period string
}

func (e *InconsistentPanelError) Error() string {
	return fmt.Sprintf("inconsistent panel: series %q has more than one observation for period %q", e.Series, e.Period)
}
