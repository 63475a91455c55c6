package sessions

import (
	"testing"
	"time"

	"github.com/mindwell-app/mindwell-backend/internal/domain"
)

func TestNewRefShape(t *testing.T) {
	at := time.Date(2026, 8, 30, 12, 34, 56, 789_000_000, time.UTC)
	ref := NewRef(at)

	if got, want := string(ref), "2026-08-30T12-34-56-789Z"; got != want {
		t.Fatalf("NewRef = %q, want %q", got, want)
	}
}

func TestRefTimeRoundTrip(t *testing.T) {
	at := time.Date(2026, 8, 30, 12, 34, 56, 789_000_000, time.UTC)

	got, ok := RefTime(NewRef(at))
	if !ok {
		t.Fatal("RefTime rejected a generated ref")
	}
	if !got.Equal(at) {
		t.Fatalf("RefTime = %v, want %v", got, at)
	}
}

func TestRefTimeRejectsForeignRefs(t *testing.T) {
	for _, ref := range []domain.SessionRef{
		"",
		"my-session",
		"abc123",
		"2026-08-30",                // date only
		"2026-08-30T12-34-56-789",   // missing Z
		"2026-08-30T12-34-56-7890Z", // wrong length
	} {
		if _, ok := RefTime(ref); ok {
			t.Fatalf("RefTime accepted %q", ref)
		}
	}
}

func TestNewRefNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("PKT", 5*60*60)
	local := time.Date(2026, 8, 30, 17, 0, 0, 0, loc)

	ref := NewRef(local)
	if got, want := string(ref), "2026-08-30T12-00-00-000Z"; got != want {
		t.Fatalf("NewRef = %q, want %q", got, want)
	}
}
