package progress

import (
	"bytes"
	"testing"
	"time"
)

func TestFakeStopsBelowFull(t *testing.T) {
	var buf bytes.Buffer
	f := Start(&buf, "Scoring", time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for f.Value() < ceiling {
		if time.Now().After(deadline) {
			t.Fatalf("bar stuck at %d", f.Value())
		}
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	if v := f.Value(); v != ceiling {
		t.Errorf("value = %d, want %d until completion", v, ceiling)
	}

	f.Complete()
	if v := f.Value(); v != full {
		t.Errorf("value after Complete = %d, want %d", v, full)
	}
	if buf.Len() == 0 {
		t.Error("nothing rendered")
	}
}

func TestFakeCompleteIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	f := Start(&buf, "Scoring", time.Hour)

	f.Complete()
	f.Complete()
	if v := f.Value(); v != full {
		t.Errorf("value = %d, want %d", v, full)
	}
}
