package ad

import (
	"fmt"
	"strings"
)

const (
	imageAspectRatio = "16:9"
	imageSizeTier    = "2K"
	videoAspectRatio = "16:9"
	videoResolution  = "720p"
)

func styleSuggestionInstruction(productText string) string {
	var b strings.Builder
	b.Grow(256)
	b.WriteString("Suggest a cinematic visual scene, in English and roughly ten words, ")
	b.WriteString("for a premium video advertisement of this product: ")
	b.WriteString(strings.TrimSpace(productText))
	b.WriteString(".\nReply with the scene description only, no quotes, no preamble.")
	return b.String()
}

// imagePrompt builds the key-visual request. The product text itself is the
// hero: it must appear as stylized typography, not as a rendered object.
func imagePrompt(req Request, styleText, typography string) string {
	var b strings.Builder
	b.Grow(1024)

	b.WriteString("TASK: Create one premium advertising key visual in 16:9.\n\n")

	b.WriteString("TYPOGRAPHY (THE SUBJECT):\n")
	b.WriteString(fmt.Sprintf("- Render the exact text %q as large stylized 3D typography, the hero of the frame.\n", strings.TrimSpace(req.ProductText)))
	b.WriteString("- Lettering: " + typography + ".\n")
	b.WriteString("- Spelling must match the given text exactly, accents included.\n\n")

	if req.Reference != nil && !req.Reference.Empty() {
		b.WriteString("SCENE (FROM REFERENCE):\n")
		b.WriteString("- Recreate the environment, palette and mood of the attached reference image.\n")
		b.WriteString("- Place the typography naturally inside that setting, matching its light and perspective.\n")
	} else {
		b.WriteString("SCENE:\n")
		b.WriteString("- Hyper-realistic scene: " + styleText + ".\n")
		b.WriteString("- Physically plausible light, reflections and shadows anchoring the letters.\n")
	}
	b.WriteString("- Overall mood: " + styleText + ".\n\n")

	b.WriteString("AVOID:\n")
	for _, line := range []string{
		"any text besides the product text",
		"watermarks or logos",
		"borders, frames, letterboxing",
		"misspelled or warped letters",
	} {
		b.WriteString("- " + line + "\n")
	}
	b.WriteString("\nOUTPUT: one image only, no text response.")

	return b.String()
}

// videoPrompt describes the motion pass: the clip must resolve into the
// already approved still, with the caption as a discreet legend.
func videoPrompt(productText, styleText, caption string) string {
	var b strings.Builder
	b.Grow(1024)

	b.WriteString("TASK: Animate a short cinematic motion-typography advertisement.\n\n")

	b.WriteString("MOTION:\n")
	b.WriteString(fmt.Sprintf("- The typography spelling %q assembles out of the opening dark frame.\n", strings.TrimSpace(productText)))
	b.WriteString("- Motion must settle exactly into the attached final frame; that still is the destination.\n")
	b.WriteString("- Slow confident camera drift, cinematic easing, no cuts.\n\n")

	b.WriteString("SCENE:\n")
	b.WriteString("- " + styleText + ".\n\n")

	if strings.TrimSpace(caption) != "" {
		b.WriteString("CAPTION LEGEND:\n")
		b.WriteString(fmt.Sprintf("- Render the caption %q as a soft, minimalist on-screen legend.\n", strings.TrimSpace(caption)))
		b.WriteString("- Small type in the lower third, gentle fade-in, never competing with the typography.\n\n")
	}

	b.WriteString("AVOID:\n")
	for _, line := range []string{
		"any other on-screen text",
		"watermarks",
		"flicker or strobing",
		"changing the typography spelling",
	} {
		b.WriteString("- " + line + "\n")
	}

	return b.String()
}
