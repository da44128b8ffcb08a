package ad

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	captionMinRunes = 5
	captionMaxRunes = 160
)

// The four promotional templates used whenever the model cannot deliver a
// usable caption. The product text is interpolated verbatim.
var fallbackCaptions = [4]string{
	"🔥 %s chegou para transformar seu dia. Garanta o seu agora!",
	"✨ Conheça %s: qualidade que se vê, estilo que se sente.",
	"🚀 %s é o upgrade que faltava na sua rotina. Aproveite!",
	"💎 %s, feito para quem não aceita menos que o melhor.",
}

func captionInstruction(productText, styleText, link string) string {
	var b strings.Builder
	b.Grow(512)

	b.WriteString("Você é um redator publicitário. Escreva UMA legenda promocional curta, em português do Brasil, para um anúncio em vídeo do produto: ")
	b.WriteString(strings.TrimSpace(productText))
	b.WriteString(".\n")
	if s := strings.TrimSpace(styleText); s != "" {
		b.WriteString("O clima visual do anúncio é: ")
		b.WriteString(s)
		b.WriteString(".\n")
	}
	b.WriteString("Regras: no máximo 150 caracteres; tom empolgante; um ou dois emojis no máximo; sem hashtags; sem aspas.")
	if strings.TrimSpace(link) != "" {
		b.WriteString(" Não inclua nenhum link, ele será anexado separadamente.")
	}
	b.WriteString("\nResponda somente com a legenda.")

	return b.String()
}

func fallbackCaption(productText string, pick func(n int) int) string {
	idx := 0
	if pick != nil {
		idx = pick(len(fallbackCaptions))
	}
	if idx < 0 || idx >= len(fallbackCaptions) {
		idx = 0
	}
	return clampCaption(fmt.Sprintf(fallbackCaptions[idx], strings.TrimSpace(productText)))
}

// sanitizeCaption flattens whitespace and removes the quote wrapping models
// like to add despite instructions.
func sanitizeCaption(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, `"“”'`)
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(text)
}

func validCaption(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= captionMinRunes
}

func clampCaption(text string) string {
	runes := []rune(text)
	if len(runes) <= captionMaxRunes {
		return text
	}
	return string(runes[:captionMaxRunes-1]) + "…"
}
