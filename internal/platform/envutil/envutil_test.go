package envutil

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want time.Duration
	}{
		{name: "unset", raw: "", want: 5 * time.Second},
		{name: "seconds", raw: "30", want: 30 * time.Second},
		{name: "go_duration", raw: "1m30s", want: 90 * time.Second},
		{name: "negative_falls_back", raw: "-3", want: 5 * time.Second},
		{name: "garbage_falls_back", raw: "soon", want: 5 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("ENVUTIL_TEST_DURATION", tc.raw)
			if got := Duration("ENVUTIL_TEST_DURATION", 5*time.Second); got != tc.want {
				t.Fatalf("Duration(%q)=%s want %s", tc.raw, got, tc.want)
			}
		})
	}
}

func TestBoolAndInt(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_BOOL", "off")
	if Bool("ENVUTIL_TEST_BOOL", true) {
		t.Fatalf("expected off to parse as false")
	}
	t.Setenv("ENVUTIL_TEST_BOOL", "maybe")
	if !Bool("ENVUTIL_TEST_BOOL", true) {
		t.Fatalf("expected unknown value to keep default")
	}
	t.Setenv("ENVUTIL_TEST_INT", "12")
	if got := Int("ENVUTIL_TEST_INT", 1); got != 12 {
		t.Fatalf("Int=%d want 12", got)
	}
	t.Setenv("ENVUTIL_TEST_INT", "x")
	if got := Int("ENVUTIL_TEST_INT", 1); got != 1 {
		t.Fatalf("Int=%d want default 1", got)
	}
}
