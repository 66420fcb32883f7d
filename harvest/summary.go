package harvest

import (
	"sort"
	"time"

	"github.com/c360studio/semharvest/asset"
	"github.com/c360studio/semharvest/validation"
)

// TypeCounts counts processed paths of one asset type.
type TypeCounts struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Failure is the reportable form of a PathError.
type Failure struct {
	Type  asset.Type `json:"type,omitempty"`
	Path  string     `json:"path"`
	Files []string   `json:"files,omitempty"`
	Fatal bool       `json:"fatal"`
	Cause string     `json:"cause"`
}

// Summary is the outcome of one run.
type Summary struct {
	RunID         string                    `json:"run_id"`
	CorrelationID string                    `json:"correlation_id"`
	StartedBy     string                    `json:"started_by,omitempty"`
	RepoURL       string                    `json:"repo_url"`
	Branch        string                    `json:"branch,omitempty"`
	StartedAt     time.Time                 `json:"started_at"`
	FinishedAt    time.Time                 `json:"finished_at"`
	Counts        map[asset.Type]TypeCounts `json:"counts"`
	Failures      []Failure                 `json:"failures,omitempty"`
	Oversize      []FileTooBigNotice        `json:"oversize,omitempty"`
	RightsHolders []asset.RightsHolder      `json:"rights_holders,omitempty"`
	Maintainers   []asset.Maintainer        `json:"maintainers,omitempty"`
	Assets        []AssetRef                `json:"assets,omitempty"`
	Validation    validation.Counts         `json:"validation"`

	// Error is set when the run aborted before or outside the path loop.
	Error string `json:"error,omitempty"`
}

// Succeeded returns the number of harvested paths across types.
func (s *Summary) Succeeded() int {
	n := 0
	for _, c := range s.Counts {
		n += c.Succeeded
	}
	return n
}

// Failed returns the number of failed paths across types.
func (s *Summary) Failed() int {
	n := 0
	for _, c := range s.Counts {
		n += c.Failed
	}
	return n
}

// Summarize builds the summary of ec as of now. Rights holders are
// de-duplicated by ID and maintainers by name and email, keeping the first
// occurrence.
func (ec *ExecutionContext) Summarize(runErr error) *Summary {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	s := &Summary{
		RunID:         ec.RunID,
		CorrelationID: ec.CorrelationID,
		StartedBy:     ec.StartedBy,
		RepoURL:       ec.Repository.URL,
		Branch:        ec.Repository.Branch,
		StartedAt:     ec.StartedAt,
		FinishedAt:    time.Now().UTC(),
		Counts:        make(map[asset.Type]TypeCounts, len(ec.processed)),
		Oversize:      append([]FileTooBigNotice(nil), ec.oversize...),
		Assets:        append([]AssetRef(nil), ec.assets...),
		Validation:    ec.validation,
	}
	for t, c := range ec.processed {
		s.Counts[t] = *c
	}
	for _, f := range ec.failures {
		s.Failures = append(s.Failures, Failure{
			Type:  f.Type,
			Path:  f.Path,
			Files: f.Files,
			Fatal: f.Fatal,
			Cause: causeOf(f),
		})
	}

	seenHolders := make(map[string]bool)
	for _, rh := range ec.rightsHolders {
		if seenHolders[rh.ID] {
			continue
		}
		seenHolders[rh.ID] = true
		s.RightsHolders = append(s.RightsHolders, rh)
	}
	sort.SliceStable(s.RightsHolders, func(i, j int) bool {
		return s.RightsHolders[i].ID < s.RightsHolders[j].ID
	})

	type maintainerKey struct{ name, email string }
	seenMaintainers := make(map[maintainerKey]bool)
	for _, m := range ec.maintainers {
		k := maintainerKey{m.Name, m.Email}
		if seenMaintainers[k] {
			continue
		}
		seenMaintainers[k] = true
		s.Maintainers = append(s.Maintainers, m)
	}

	if runErr != nil {
		s.Error = runErr.Error()
	}
	return s
}

func causeOf(f *PathError) string {
	if cause := RootCause(f.Err); cause != nil {
		return cause.Error()
	}
	return ""
}
