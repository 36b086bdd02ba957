package paging

import (
	"net/http/httptest"
	"testing"
)

func TestParseStart(t *testing.T) {
	tests := []struct {
		url  string
		want int
	}{
		{"/app-users", 1},
		{"/app-users?start=51", 51},
		{"/app-users?start=0", 1},
		{"/app-users?start=-4", 1},
		{"/app-users?start=abc", 1},
	}
	for _, tc := range tests {
		if got := ParseStart(httptest.NewRequest("GET", tc.url, nil)); got != tc.want {
			t.Errorf("ParseStart(%q) = %d, want %d", tc.url, got, tc.want)
		}
	}
}

func TestSkip(t *testing.T) {
	if got := Skip(1); got != 0 {
		t.Errorf("Skip(1) = %d, want 0", got)
	}
	if got := Skip(51); got != 50 {
		t.Errorf("Skip(51) = %d, want 50", got)
	}
	if got := Skip(0); got != 0 {
		t.Errorf("Skip(0) = %d, want 0", got)
	}
}

func TestTrimPage(t *testing.T) {
	rows := make([]int, PageSize+1)
	res := TrimPage(&rows, 1)
	if len(rows) != PageSize {
		t.Errorf("expected %d rows, got %d", PageSize, len(rows))
	}
	if !res.HasNext || res.HasPrev {
		t.Errorf("expected next only, got %+v", res)
	}

	short := make([]int, 3)
	res = TrimPage(&short, 51)
	if len(short) != 3 {
		t.Errorf("expected 3 rows untouched, got %d", len(short))
	}
	if res.HasNext || !res.HasPrev {
		t.Errorf("expected prev only, got %+v", res)
	}
}

func TestComputeRange(t *testing.T) {
	empty := ComputeRange(1, 0)
	if empty.Start != 0 || empty.End != 0 {
		t.Errorf("expected zero range for no rows, got %+v", empty)
	}

	r := ComputeRange(51, PageSize)
	if r.Start != 51 || r.End != 100 {
		t.Errorf("expected 51-100, got %d-%d", r.Start, r.End)
	}
	if r.PrevStart != 1 || r.NextStart != 101 {
		t.Errorf("expected prev=1 next=101, got prev=%d next=%d", r.PrevStart, r.NextStart)
	}

	r = ComputeRange(20, 5)
	if r.PrevStart != 1 {
		t.Errorf("expected prev clamped to 1, got %d", r.PrevStart)
	}
}
