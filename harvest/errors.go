package harvest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/c360studio/semharvest/asset"
)

// PathError is the failure of one discovered path. The harvest loop records
// it and moves on. Fatal marks paths whose output is unusable or was only
// partially written to the stores.
type PathError struct {
	Type  asset.Type
	Path  string
	Files []string
	Fatal bool
	Err   error
}

func (e *PathError) Error() string {
	kind := "non-fatal"
	if e.Fatal {
		kind = "fatal"
	}
	return fmt.Sprintf("%s %s failure on %s: %v", kind, e.Type, e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

func pathFailure(t asset.Type, p asset.SourcePath, fatal bool, err error) *PathError {
	return &PathError{
		Type:  t,
		Path:  p.RDFFile(),
		Files: p.Files(),
		Fatal: fatal,
		Err:   err,
	}
}

// RootCause unwraps message-carrying wrappers (fmt.Errorf with %w) down to
// the innermost error that still adds context to its cause, so sentinels
// are reported together with the detail wrapping them. Joined errors are
// returned whole.
func RootCause(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil || errors.Unwrap(next) == nil || !strings.Contains(err.Error(), next.Error()) {
			return err
		}
		err = next
	}
	return nil
}
