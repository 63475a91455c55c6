package sessions

import (
	"strings"
	"time"

	"github.com/mindwell-app/mindwell-backend/internal/domain"
)

// refLayout is the generated reference shape: a UTC instant with the
// characters Firestore paths dislike (':' and '.') replaced by '-',
// e.g. 2026-08-30T12-34-56-789Z. Millisecond granularity keeps refs
// unique at sub-second rates within one subject.
const refLayout = "2006-01-02T15:04:05.000Z"

// NewRef derives a session reference from the creation instant.
func NewRef(t time.Time) domain.SessionRef {
	s := t.UTC().Format(refLayout)
	s = strings.ReplaceAll(s, ":", "-")
	s = strings.ReplaceAll(s, ".", "-")
	return domain.SessionRef(s)
}

// RefTime recovers the creation instant from a timestamp-shaped
// reference. Caller-supplied refs that don't match the shape report
// false.
func RefTime(ref domain.SessionRef) (time.Time, bool) {
	s := string(ref)
	if !strings.Contains(s, "T") || len(s) != len(refLayout) {
		return time.Time{}, false
	}
	// Undo the '-' substitutions in the time-of-day section.
	b := []byte(s)
	b[13] = ':'
	b[16] = ':'
	b[19] = '.'
	t, err := time.Parse(refLayout, string(b))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
