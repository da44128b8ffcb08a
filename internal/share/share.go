// Package share composes the promotional text and the per-network share URLs
// for a finished ad. Everything here is pure string work.
package share

import (
	"net/url"
	"strings"
)

const (
	whatsappSendURL  = "https://api.whatsapp.com/send"
	instagramHomeURL = "https://www.instagram.com/"
	tiktokHomeURL    = "https://www.tiktok.com/"
)

// Links carries the user's configured destinations. Any field may be empty.
type Links struct {
	WhatsApp  string
	Instagram string
	TikTok    string
	Phone     string
}

// Compose joins the caption and the external link into the clipboard text.
func Compose(caption, link string) string {
	caption = strings.TrimSpace(caption)
	link = strings.TrimSpace(link)
	switch {
	case caption == "":
		return link
	case link == "":
		return caption
	}
	return caption + "\n\n" + link
}

// URL resolves a network name to its share URL. WhatsApp is the only network
// that accepts prefilled text; the others just open the user's page (or the
// network homepage) and rely on the clipboard copy.
func URL(network string, links Links, text string) (string, bool) {
	switch network {
	case "whatsapp":
		return WhatsApp(links.WhatsApp, links.Phone, text), true
	case "instagram":
		return Instagram(links.Instagram), true
	case "tiktok":
		return TikTok(links.TikTok), true
	default:
		return "", false
	}
}

// WhatsApp builds the intent URL with the composed text. Preference order:
// the configured link, a wa.me address derived from the phone, then the
// generic send endpoint.
func WhatsApp(profileLink, phone, text string) string {
	base := strings.TrimSpace(profileLink)
	if base == "" {
		if digits := digitsOf(phone); digits != "" {
			base = "https://wa.me/" + digits
		}
	}
	if base == "" {
		base = whatsappSendURL
	}

	parsed, err := url.Parse(base)
	if err != nil {
		parsed, _ = url.Parse(whatsappSendURL)
	}
	query := parsed.Query()
	query.Set("text", text)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// Instagram opens the configured page as is; the platform takes no prefilled
// text, so no query parameters are composed.
func Instagram(profileLink string) string {
	if link := strings.TrimSpace(profileLink); link != "" {
		return link
	}
	return instagramHomeURL
}

// TikTok behaves like Instagram: configured page or homepage, untouched.
func TikTok(profileLink string) string {
	if link := strings.TrimSpace(profileLink); link != "" {
		return link
	}
	return tiktokHomeURL
}

func digitsOf(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
