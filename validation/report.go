// Package validation accumulates the errors and warnings raised while
// extracting metadata from a semantic asset.
//
// A Report is an immutable value. Every With* call returns a new Report that
// shares no mutable state with the receiver, so a caller holding a snapshot
// can diff it against a later report with Since or Counts.
package validation

import "fmt"

// Severity classifies an Issue.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Issue is a single validation finding.
type Issue struct {
	Severity Severity `json:"-"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Cause    error    `json:"-"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s: %s", i.Severity, i.Field, i.Message)
}

type issueKey struct {
	severity Severity
	field    string
	message  string
}

func (i Issue) key() issueKey {
	return issueKey{severity: i.Severity, field: i.Field, message: i.Message}
}

// Report is an ordered, append-only collection of issues.
type Report struct {
	issues []Issue
}

// Empty returns a report without issues.
func Empty() Report {
	return Report{}
}

// With returns a copy of r with issue appended.
func (r Report) With(issue Issue) Report {
	issues := make([]Issue, len(r.issues), len(r.issues)+1)
	copy(issues, r.issues)
	return Report{issues: append(issues, issue)}
}

// WithError records an error for field.
func (r Report) WithError(field, message string, cause error) Report {
	return r.With(Issue{Severity: SeverityError, Field: field, Message: message, Cause: cause})
}

// WithWarning records a warning for field.
func (r Report) WithWarning(field, message string, cause error) Report {
	return r.With(Issue{Severity: SeverityWarning, Field: field, Message: message, Cause: cause})
}

// Merge returns a report holding the issues of r followed by those of other.
func (r Report) Merge(other Report) Report {
	if len(other.issues) == 0 {
		return r
	}
	issues := make([]Issue, 0, len(r.issues)+len(other.issues))
	issues = append(issues, r.issues...)
	issues = append(issues, other.issues...)
	return Report{issues: issues}
}

// Issues returns every recorded issue in insertion order, duplicates
// included.
func (r Report) Issues() []Issue {
	out := make([]Issue, len(r.issues))
	copy(out, r.issues)
	return out
}

// Errors returns the distinct errors by (field, message), first seen first.
func (r Report) Errors() []Issue {
	return r.distinct(SeverityError)
}

// Warnings returns the distinct warnings by (field, message), first seen
// first.
func (r Report) Warnings() []Issue {
	return r.distinct(SeverityWarning)
}

// HasErrors reports whether r holds at least one error.
func (r Report) HasErrors() bool {
	for _, i := range r.issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (r Report) distinct(sev Severity) []Issue {
	seen := make(map[issueKey]struct{})
	var out []Issue
	for _, i := range r.issues {
		if i.Severity != sev {
			continue
		}
		k := i.key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, i)
	}
	return out
}

// Counts is a snapshot of the distinct error and warning totals.
type Counts struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// Sub returns c minus before, the issues added between two snapshots.
func (c Counts) Sub(before Counts) Counts {
	return Counts{Errors: c.Errors - before.Errors, Warnings: c.Warnings - before.Warnings}
}

// Counts returns the distinct totals as of now.
func (r Report) Counts() Counts {
	return Counts{Errors: len(r.Errors()), Warnings: len(r.Warnings())}
}

// Since returns the issues r holds beyond the first len(before) entries. It
// assumes r was derived from before by appending.
func (r Report) Since(before Report) Report {
	n := len(before.issues)
	if n >= len(r.issues) {
		return Report{}
	}
	issues := make([]Issue, len(r.issues)-n)
	copy(issues, r.issues[n:])
	return Report{issues: issues}
}
