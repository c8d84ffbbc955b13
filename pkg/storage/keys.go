package storage

import "fmt"

// Key schema:
//
//	s:<id>                  -> Submission (JSON)
//	t:<startedAt ns>:<id>   -> id
//
// The started-at timestamp is zero-padded to 20 digits so index keys sort
// chronologically.
const (
	prefixSubmission = "s:"
	prefixTimeIndex  = "t:"
)

func submissionKey(id string) []byte {
	return []byte(prefixSubmission + id)
}

func timeIndexKey(startedNanos int64, id string) []byte {
	if startedNanos < 0 {
		startedNanos = 0
	}
	return []byte(fmt.Sprintf("%s%020d:%s", prefixTimeIndex, startedNanos, id))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
