package sync

import "fmt"

// NormalizationError reports a single upstream record that could not be
// mapped into the local shape. Never fatal to a batch: the offending record
// is skipped, logged, and reported in the sync result.
type NormalizationError struct {
	Kind         Kind
	Key          string
	MissingField string
}

func (e *NormalizationError) Error() string {
	if e.MissingField != "" {
		return fmt.Sprintf("%s record %q: missing required field %q", e.Kind, e.Key, e.MissingField)
	}
	return fmt.Sprintf("%s record %q: malformed payload", e.Kind, e.Key)
}
