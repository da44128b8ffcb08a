package ad

import (
	"math/rand/v2"
	"testing"
)

func TestResolveStyleDrawsRandomCatalogEntry(t *testing.T) {
	r := rand.New(rand.NewPCG(11, 13))
	got := ResolveStyle("", r.IntN)

	var known bool
	for _, key := range styleOrder {
		if got == stylePresets[key].Description {
			known = true
			break
		}
	}
	if !known {
		t.Fatalf("random style %q is not a catalog entry", got)
	}

	again := ResolveStyle("", rand.New(rand.NewPCG(11, 13)).IntN)
	if got != again {
		t.Fatalf("same seed must give same style: %q vs %q", got, again)
	}
}

func TestResolveStyleKnownKeyAndFreeText(t *testing.T) {
	if got := ResolveStyle("neon_urban", nil); got != stylePresets["neon_urban"].Description {
		t.Fatalf("known key: got=%q", got)
	}
	free := "foggy harbor at dawn"
	if got := ResolveStyle(free, nil); got != free {
		t.Fatalf("free text must pass through: got=%q", got)
	}
	if got := ResolveStyle("  ", nil); got != DefaultStyle {
		t.Fatalf("blank with nil pick must use default: got=%q", got)
	}
}

func TestResolveTypography(t *testing.T) {
	if got := ResolveTypography(""); got != DefaultTypography {
		t.Fatalf("default typography: got=%q", got)
	}
	if got := ResolveTypography("chrome"); got != typographyPresets["chrome"].Direction {
		t.Fatalf("preset typography: got=%q", got)
	}
	if got := ResolveTypography("letras de gelo"); got != "letras de gelo" {
		t.Fatalf("free text typography: got=%q", got)
	}
}

func TestCatalogAccessorsKeepOrderAndDefaults(t *testing.T) {
	styles := VisualStyles()
	if len(styles) != len(styleOrder)+1 {
		t.Fatalf("styles length: want=%d got=%d", len(styleOrder)+1, len(styles))
	}
	if styles[0].Key != "" {
		t.Fatalf("first style option must be the random default, got key=%q", styles[0].Key)
	}
	if styles[1].Key != "minimalist_cinematic" {
		t.Fatalf("style order broken: got=%q", styles[1].Key)
	}

	typos := TypographyStyles()
	if typos[0].Key != "" || len(typos) != len(typographyOrder)+1 {
		t.Fatalf("typography options malformed: %+v", typos)
	}
}
