package extract

import (
	"reflect"
	"testing"
)

func TestPrice(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		want  int
		wantOK bool
	}{
		{"korean won with separator", "12,900원", 12900, true},
		{"plain digits", "4500", 4500, true},
		{"surrounding text", "판매가 1,234,000원", 1234000, true},
		{"empty", "", 0, false},
		{"no digits", "무료", 0, false},
		{"whitespace only", "   ", 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Price(tc.text)
			if ok != tc.wantOK || got != tc.want {
				t.Errorf("Price(%q) = (%d, %v), want (%d, %v)", tc.text, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestProductID(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want string
	}{
		{"numeric id", "https://gift.kakao.com/product/123456", "123456"},
		{"numeric id with query", "https://gift.kakao.com/product/123456?tab=review", "123456"},
		{"no id segment falls back to slug", "https://gift.kakao.com/brand/cool", "https-gift-kakao-com-brand-cool"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ProductID(tc.url); got != tc.want {
				t.Errorf("ProductID(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestSlug_DeterministicAndBounded(t *testing.T) {
	long := "https://example.com/some/very/long/path/that/keeps/going/and/going"
	a, b := Slug(long), Slug(long)
	if a != b {
		t.Errorf("Slug not deterministic: %q vs %q", a, b)
	}
	if len(a) > 32 {
		t.Errorf("Slug too long: %d chars", len(a))
	}
	if a[0] == '-' || a[len(a)-1] == '-' {
		t.Errorf("Slug has dangling hyphen: %q", a)
	}
}

func TestSourceBest(t *testing.T) {
	cases := []struct {
		name string
		src  Source
		want string
	}{
		{"original beats all", Source{Src: "a", DataSrc: "b", DataOriginalSrc: "c"}, "c"},
		{"lazy beats rendered", Source{Src: "a", DataSrc: "b"}, "b"},
		{"rendered only", Source{Src: "a"}, "a"},
		{"nothing", Source{}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.src.Best(); got != tc.want {
				t.Errorf("Best() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestUsableImageURL(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://cdn.example.com/goods/1.jpg", true},
		{"http://cdn.example.com/goods/1.png", true},
		{"/relative/path.jpg", false},
		{"data:image/gif;base64,R0lGOD", false},
		{"https://cdn.example.com/icon_cart.png", false},
		{"https://cdn.example.com/brand_logo.png", false},
		{"https://cdn.example.com/btn_more.png", false},
		{"https://cdn.example.com/1x1.gif", false},
		{"https://cdn.example.com/img/placeholder.jpg", false},
		{"", false},
	}

	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			if got := UsableImageURL(tc.url); got != tc.want {
				t.Errorf("UsableImageURL(%q) = %v, want %v", tc.url, got, tc.want)
			}
		})
	}
}

func TestFilterSources(t *testing.T) {
	sources := []Source{
		{Src: "https://cdn.example.com/loading_1x1.gif", DataOriginalSrc: "https://cdn.example.com/goods/real1.jpg"},
		{Src: "https://cdn.example.com/goods/real2.jpg"},
		{Src: "https://cdn.example.com/goods/real1.jpg"}, // dup of the first after resolution
		{Src: "/relative.jpg"},
		{},
	}

	got := FilterSources(sources)
	want := []string{
		"https://cdn.example.com/goods/real1.jpg",
		"https://cdn.example.com/goods/real2.jpg",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilterSources = %v, want %v", got, want)
	}
}

func TestFilterURLs_Idempotent(t *testing.T) {
	urls := []string{
		"https://cdn.example.com/goods/a.jpg",
		"https://cdn.example.com/goods/b.jpg",
		"https://cdn.example.com/goods/a.jpg",
		"https://cdn.example.com/icon_x.png",
	}

	once := FilterURLs(urls)
	twice := FilterURLs(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("filter not idempotent: %v vs %v", once, twice)
	}
	if len(once) != 2 {
		t.Errorf("got %d urls, want 2", len(once))
	}
}

func TestCandidates(t *testing.T) {
	t.Run("main plus details", func(t *testing.T) {
		got := Candidates("https://x/main.jpg", []string{"https://x/d1.jpg", "https://x/d2.jpg"})
		if len(got) != 3 {
			t.Fatalf("got %d candidates, want 3", len(got))
		}
		if got[0].Role != "main" || got[0].URL != "https://x/main.jpg" {
			t.Errorf("first candidate = %+v, want main", got[0])
		}
		if got[1].Role != "detail1" || got[2].Role != "detail2" {
			t.Errorf("detail roles not numbered in order: %+v", got[1:])
		}
	})

	t.Run("first detail promoted to main", func(t *testing.T) {
		got := Candidates("", []string{"https://x/d1.jpg", "https://x/d2.jpg"})
		if len(got) != 2 {
			t.Fatalf("got %d candidates, want 2", len(got))
		}
		if got[0].Role != "main" || got[0].URL != "https://x/d1.jpg" {
			t.Errorf("promotion failed: %+v", got[0])
		}
		if got[1].Role != "detail1" || got[1].URL != "https://x/d2.jpg" {
			t.Errorf("remaining detail wrong: %+v", got[1])
		}
	})

	t.Run("detail equal to main skipped", func(t *testing.T) {
		got := Candidates("https://x/main.jpg", []string{"https://x/main.jpg", "https://x/d1.jpg"})
		if len(got) != 2 {
			t.Fatalf("got %d candidates, want 2", len(got))
		}
		if got[1].URL != "https://x/d1.jpg" {
			t.Errorf("duplicate of main not skipped: %+v", got)
		}
	})

	t.Run("nothing at all", func(t *testing.T) {
		if got := Candidates("", nil); len(got) != 0 {
			t.Errorf("expected no candidates, got %+v", got)
		}
	})
}
