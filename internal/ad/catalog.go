package ad

import "strings"

// DefaultStyle is the scene used whenever no style is available, including the
// style-suggestion failure path.
const DefaultStyle = "minimalist cinematic scene, dramatic lighting"

// DefaultTypography is the lettering direction applied when the request leaves
// the typography field empty and no preset matches.
const DefaultTypography = "bold extruded 3D lettering with a clean sans-serif face, crisp edges"

type NamedOption struct {
	Key  string
	Name string
}

type stylePreset struct {
	Name        string
	Description string
}

var stylePresets = map[string]stylePreset{
	"minimalist_cinematic": {
		Name:        "Minimalista Cinematográfico",
		Description: DefaultStyle,
	},
	"neon_urban": {
		Name:        "Neon Urbano",
		Description: "rain-slicked neon city street at night, cyberpunk glow, reflections on wet asphalt",
	},
	"luxury_gold": {
		Name:        "Luxo Dourado",
		Description: "opulent gold and black studio, soft spotlights, velvet shadows, premium mood",
	},
	"pastel_soft": {
		Name:        "Pastel Suave",
		Description: "soft pastel gradient studio, diffuse morning light, airy and calm",
	},
	"nature_organic": {
		Name:        "Natureza Orgânica",
		Description: "sunlit forest clearing, organic textures, drifting pollen caught in light beams",
	},
	"retro_film": {
		Name:        "Retrô Filme",
		Description: "1980s retro set, warm grainy film look, subtle chromatic aberration",
	},
	"industrial_concrete": {
		Name:        "Industrial",
		Description: "raw concrete hall, hard rim light, volumetric haze, monolithic scale",
	},
	"ocean_deep": {
		Name:        "Oceano Profundo",
		Description: "deep underwater scene, caustic light rays, slow drifting particles",
	},
}

var styleOrder = []string{
	"minimalist_cinematic",
	"neon_urban",
	"luxury_gold",
	"pastel_soft",
	"nature_organic",
	"retro_film",
	"industrial_concrete",
	"ocean_deep",
}

type typographyPreset struct {
	Name      string
	Direction string
}

var typographyPresets = map[string]typographyPreset{
	"bold_3d": {
		Name:      "3D Marcante",
		Direction: DefaultTypography,
	},
	"chrome": {
		Name:      "Cromo Polido",
		Direction: "polished chrome letters with sharp specular highlights and mirror reflections",
	},
	"neon_tube": {
		Name:      "Tubo de Neon",
		Direction: "glowing neon tube lettering with a soft halo and faint flicker",
	},
	"liquid_glass": {
		Name:      "Vidro Líquido",
		Direction: "transparent liquid-glass letters with refraction and caustic highlights",
	},
	"brush_paint": {
		Name:      "Pincelada",
		Direction: "hand-painted brush-stroke letters with visible bristle texture",
	},
	"paper_cut": {
		Name:      "Papel Recortado",
		Direction: "layered paper-cut letters with soft drop shadows",
	},
}

var typographyOrder = []string{
	"bold_3d",
	"chrome",
	"neon_tube",
	"liquid_glass",
	"brush_paint",
	"paper_cut",
}

func VisualStyles() []NamedOption {
	out := make([]NamedOption, 0, len(styleOrder)+1)
	out = append(out, NamedOption{Key: "", Name: "Surpreenda-me"})
	for _, key := range styleOrder {
		if preset, ok := stylePresets[key]; ok {
			out = append(out, NamedOption{Key: key, Name: preset.Name})
		}
	}
	return out
}

func TypographyStyles() []NamedOption {
	out := make([]NamedOption, 0, len(typographyOrder)+1)
	out = append(out, NamedOption{Key: "", Name: "Padrão"})
	for _, key := range typographyOrder {
		if preset, ok := typographyPresets[key]; ok {
			out = append(out, NamedOption{Key: key, Name: preset.Name})
		}
	}
	return out
}

// ResolveStyle maps a form value to prompt text: empty draws a random catalog
// entry, a known key expands to its description, anything else passes through
// as free text.
func ResolveStyle(value string, pick func(n int) int) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return RandomStyle(pick)
	}
	if preset, ok := stylePresets[value]; ok {
		return preset.Description
	}
	return value
}

func RandomStyle(pick func(n int) int) string {
	if pick == nil {
		return DefaultStyle
	}
	idx := pick(len(styleOrder))
	if idx < 0 || idx >= len(styleOrder) {
		return DefaultStyle
	}
	return stylePresets[styleOrder[idx]].Description
}

func ResolveTypography(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultTypography
	}
	if preset, ok := typographyPresets[value]; ok {
		return preset.Direction
	}
	return value
}
