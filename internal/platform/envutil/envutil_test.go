package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "nope")
	if got := Int("ENVUTIL_INT", 7); got != 7 {
		t.Fatalf("Int: want=7 got=%d", got)
	}
	t.Setenv("ENVUTIL_INT", " 12 ")
	if got := Int("ENVUTIL_INT", 7); got != 12 {
		t.Fatalf("Int: want=12 got=%d", got)
	}
}

func TestSecondsRejectsNonPositive(t *testing.T) {
	t.Setenv("ENVUTIL_SECS", "0")
	if got := Seconds("ENVUTIL_SECS", time.Minute); got != time.Minute {
		t.Fatalf("Seconds: want=1m got=%s", got)
	}
	t.Setenv("ENVUTIL_SECS", "5")
	if got := Seconds("ENVUTIL_SECS", time.Minute); got != 5*time.Second {
		t.Fatalf("Seconds: want=5s got=%s", got)
	}
}

func TestListAndBool(t *testing.T) {
	t.Setenv("ENVUTIL_LIST", "a, ,b,")
	got := List("ENVUTIL_LIST", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List: got=%v", got)
	}
	t.Setenv("ENVUTIL_BOOL", "off")
	if Bool("ENVUTIL_BOOL", true) {
		t.Fatalf("Bool: want=false")
	}
}

func TestFloat(t *testing.T) {
	t.Setenv("ENVUTIL_FLOAT", "2.5")
	if got := Float("ENVUTIL_FLOAT", 1); got != 2.5 {
		t.Fatalf("Float: want=2.5 got=%v", got)
	}
	t.Setenv("ENVUTIL_FLOAT", "fast")
	if got := Float("ENVUTIL_FLOAT", 1); got != 1 {
		t.Fatalf("Float: want=1 got=%v", got)
	}
}
