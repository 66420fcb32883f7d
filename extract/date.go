package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/c360studio/semharvest/graph"
	"github.com/c360studio/semharvest/validation"
)

// MsgInvalidDate is recorded for a date literal that cannot be parsed.
const MsgInvalidDate = "invalid date"

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDate parses the lexical forms of xsd:date and xsd:dateTime found in
// asset descriptions.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q", s)
}

// Date returns the date value of property. Both a missing and a malformed
// value are recorded as errors and returned.
func Date(res graph.Resource, property string) (time.Time, validation.Report, error) {
	raw, report, err := Literal(res, property)
	if err != nil {
		return time.Time{}, report, err
	}
	t, err := ParseDate(raw)
	if err != nil {
		err = &PropertyError{Resource: res.String(), Property: property, Reason: err.Error()}
		return time.Time{}, report.WithError(property, MsgInvalidDate, err), err
	}
	return t, report, nil
}

// OptionalDate returns the date value of property or nil. Missing and
// malformed values are recorded as warnings.
func OptionalDate(res graph.Resource, property string) (*time.Time, validation.Report) {
	raw, report := OptionalLiteral(res, property)
	if raw == "" {
		return nil, report
	}
	t, err := ParseDate(raw)
	if err != nil {
		return nil, report.WithWarning(property, MsgInvalidDate, err)
	}
	return &t, report
}
