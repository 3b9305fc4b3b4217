package nats

import "testing"

func TestSubjectFor(t *testing.T) {
	got := subjectFor("abc123")
	want := "url.hits.abc123"
	if got != want {
		t.Fatalf("subjectFor() = %q, want %q", got, want)
	}
}
