package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, DefaultLimit},
		{-5, DefaultLimit},
		{10, 10},
		{MaxLimit, MaxLimit},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tc := range cases {
		if got := NormalizeLimit(tc.in); got != tc.want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestNewPage_HasMore(t *testing.T) {
	items := []int{1, 2, 3}

	page := NewPage(items, Params{Limit: 3, Offset: 0}, 10)
	if !page.HasMore {
		t.Fatal("expected more pages when offset+len < total")
	}

	page = NewPage(items, Params{Limit: 3, Offset: 7}, 10)
	if page.HasMore {
		t.Fatal("expected last page when offset+len == total")
	}
	if page.Total != 10 || page.Offset != 7 {
		t.Fatalf("unexpected metadata %+v", page)
	}
}

func TestParamsNormalize(t *testing.T) {
	p := Params{Limit: -1, Offset: -3}.Normalize()
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Fatalf("unexpected normalized params %+v", p)
	}
}
