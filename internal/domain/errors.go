package domain

import "fmt"

// RecordError is a per-record failure inside one pipeline stage. The
// record is excluded from that stage's output; the batch continues. Raw
// carries the record's source fragment so dead-lettered failures can be
// inspected and replayed.
type RecordError struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Err   string `json:"error"`
	Raw   string `json:"raw_data,omitempty"`
}

func (e RecordError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("record %d (%s): %s", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("record %d: %s", e.Index, e.Err)
}
