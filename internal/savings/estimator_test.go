package savings

import "testing"

func TestEstimatePNGUsesEmpiricalRatio(t *testing.T) {
	e := New()
	est := e.Estimate("image/png", 1000)
	if est.SavingsBytes != 660 {
		t.Fatalf("expected 660 savings bytes for PNG, got %d", est.SavingsBytes)
	}
	if est.EstimatedWebPBytes != 340 {
		t.Fatalf("expected 340 estimated bytes, got %d", est.EstimatedWebPBytes)
	}
	if est.SavingsPercent != 66 {
		t.Fatalf("expected 66%% savings, got %f", est.SavingsPercent)
	}
}

func TestEstimateUnknownMimeUsesDefaultRatio(t *testing.T) {
	e := New()
	est := e.Estimate("image/tiff", 1000)
	if est.SavingsBytes != 800 {
		t.Fatalf("expected 800 savings bytes for unknown mime, got %d", est.SavingsBytes)
	}
}

func TestEstimateClampsToOriginalSize(t *testing.T) {
	e := New()
	est := e.Estimate("image/gif", 0)
	if est.SavingsBytes != 0 || est.EstimatedWebPBytes != 0 {
		t.Fatalf("expected zero-size image to yield zero savings, got %+v", est)
	}
}

func TestCategorizeMatchesFirstRuleInPriorityOrder(t *testing.T) {
	e := New()
	cases := []struct {
		url  string
		want string
	}{
		{"https://example.com/images/hero-banner-large.jpg", "Hero & Banners"},
		{"https://example.com/product/sku-1234-main.png", "Product Images"},
		{"https://example.com/thumbs/thumbnail-small.jpg", "Thumbnails"},
		{"https://example.com/assets/favicon.ico", "Icons"},
		{"https://example.com/assets/bg-texture.jpg", "Backgrounds"},
		{"https://example.com/assets/random-photo.jpg", "Other"},
	}
	for _, c := range cases {
		got := e.Categorize(c.url, "image/jpeg")
		if got != c.want {
			t.Errorf("Categorize(%s) = %s, want %s", c.url, got, c.want)
		}
	}
}

func TestCategorizeHeroWinsOverProductWhenBothPresent(t *testing.T) {
	e := New()
	got := e.Categorize("https://example.com/product/hero-banner.jpg", "image/jpeg")
	if got != "Hero & Banners" {
		t.Fatalf("expected Hero & Banners to win by priority order, got %s", got)
	}
}
