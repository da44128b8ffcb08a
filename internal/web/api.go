package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"motion-typo-studio/internal/ad"
	"motion-typo-studio/internal/flow"
	"motion-typo-studio/internal/gemini"
	"motion-typo-studio/internal/session"
	"motion-typo-studio/internal/share"
	"motion-typo-studio/internal/store"
)

type stateResponse struct {
	State       string `json:"state"`
	Status      string `json:"status,omitempty"`
	Error       string `json:"error,omitempty"`
	Screen      string `json:"screen"`
	AdID        string `json:"adId,omitempty"`
	Caption     string `json:"caption,omitempty"`
	Link        string `json:"link,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	VideoURL    string `json:"videoUrl,omitempty"`
	KeySelected bool   `json:"keySelected"`
	HasProfile  bool   `json:"hasProfile"`
}

func (s *Server) stateOf(sess *session.Session) stateResponse {
	snap := sess.Controller().Snapshot()
	_, hasProfile := s.store.Profile()

	return stateResponse{
		State:       snap.State.String(),
		Status:      snap.Status,
		Error:       snap.Error,
		Screen:      snap.Screen.String(),
		AdID:        snap.AdID,
		Caption:     snap.Caption,
		Link:        snap.Link,
		ImageURL:    snap.ImageURL,
		VideoURL:    snap.VideoURL,
		KeySelected: sess.Selected(),
		HasProfile:  hasProfile,
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, s.stateOf(sess))
}

type generateRequest struct {
	ProductText    string `json:"productText"`
	Style          string `json:"style"`
	Typography     string `json:"typography"`
	Link           string `json:"link"`
	ReferenceImage string `json:"referenceImage"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var in generateRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "requisição inválida"})
		return
	}

	req := ad.Request{
		ProductText: in.ProductText,
		Style:       in.Style,
		Typography:  in.Typography,
		Link:        in.Link,
	}
	if strings.TrimSpace(in.ReferenceImage) != "" {
		blob, err := gemini.ParseDataURL(in.ReferenceImage)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "imagem de referência inválida"})
			return
		}
		req.Reference = &blob
	}

	// The sequence runs on the server's context: the browser polls /api/state
	// for progress and must not cancel the pipeline by navigating away.
	switch sess.Controller().SubmitAsync(s.runCtx, req) {
	case flow.OutcomeEmptyText:
		writeJSON(w, http.StatusBadRequest, apiError{Error: "descreva o produto"})
	case flow.OutcomeNeedKey:
		writeJSON(w, http.StatusUnauthorized, struct {
			NeedKey bool `json:"needKey"`
		}{NeedKey: true})
	case flow.OutcomeBusy:
		writeJSON(w, http.StatusConflict, apiError{Error: "já existe uma geração em andamento"})
	default:
		writeJSON(w, http.StatusAccepted, s.stateOf(sess))
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}
	sess.Controller().Reset()
	writeJSON(w, http.StatusOK, s.stateOf(sess))
}

type primaryResponse struct {
	Screen        string `json:"screen"`
	OpenKeyDialog bool   `json:"openKeyDialog"`
}

func (s *Server) handlePrimary(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	_, hasProfile := s.store.Profile()
	route := sess.Controller().PrimaryAction(hasProfile)
	writeJSON(w, http.StatusOK, primaryResponse{
		Screen:        route.Screen.String(),
		OpenKeyDialog: route.OpenKeyDialog,
	})
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	var in struct {
		Screen string `json:"screen"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "requisição inválida"})
		return
	}

	mode, ok := flow.ParseScreen(in.Screen)
	if !ok {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "tela desconhecida"})
		return
	}

	sess.Controller().SetScreen(mode)
	writeJSON(w, http.StatusOK, s.stateOf(sess))
}

type optionJSON struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Styles     []optionJSON `json:"styles"`
		Typography []optionJSON `json:"typography"`
	}{
		Styles:     toOptions(ad.VisualStyles()),
		Typography: toOptions(ad.TypographyStyles()),
	})
}

func toOptions(opts []ad.NamedOption) []optionJSON {
	out := make([]optionJSON, 0, len(opts))
	for _, o := range opts {
		out = append(out, optionJSON{Key: o.Key, Name: o.Name})
	}
	return out
}

func (s *Server) handleStyleSuggest(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	var in struct {
		ProductText string `json:"productText"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.ProductText) == "" {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "descreva o produto"})
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Style string `json:"style"`
	}{Style: sess.Creator().SuggestStyle(r.Context(), in.ProductText)})
}

type galleryAd struct {
	ID          string    `json:"id"`
	ProductText string    `json:"productText"`
	Caption     string    `json:"caption"`
	Style       string    `json:"style"`
	ImageURL    string    `json:"imageUrl"`
	VideoURL    string    `json:"videoUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	ads, err := s.store.RecentAds(r.Context(), s.galleryLimit)
	if err != nil {
		s.logger.Error("gallery listing failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "falha ao carregar a galeria"})
		return
	}

	out := make([]galleryAd, 0, len(ads))
	for _, a := range ads {
		out = append(out, galleryAd{
			ID:          a.ID,
			ProductText: a.ProductText,
			Caption:     a.Caption,
			Style:       a.Style,
			ImageURL:    a.ImageURL,
			VideoURL:    a.VideoURL,
			CreatedAt:   a.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, struct {
		Ads []galleryAd `json:"ads"`
	}{Ads: out})
}

type profileJSON struct {
	Exists    bool   `json:"exists"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	WhatsApp  string `json:"whatsapp"`
	Instagram string `json:"instagram"`
	TikTok    string `json:"tiktok"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		p, ok := s.store.Profile()
		writeJSON(w, http.StatusOK, profileJSON{
			Exists:    ok,
			Name:      p.Name,
			Phone:     p.Phone,
			WhatsApp:  p.WhatsApp,
			Instagram: p.Instagram,
			TikTok:    p.TikTok,
		})
	case http.MethodPost:
		var in profileJSON
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "requisição inválida"})
			return
		}

		p := store.Profile{
			Name:      strings.TrimSpace(in.Name),
			Phone:     strings.TrimSpace(in.Phone),
			WhatsApp:  strings.TrimSpace(in.WhatsApp),
			Instagram: strings.TrimSpace(in.Instagram),
			TikTok:    strings.TrimSpace(in.TikTok),
		}
		if p.Name == "" {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "informe seu nome"})
			return
		}

		if err := s.store.SaveProfile(r.Context(), p); err != nil {
			s.logger.Error("profile save failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, apiError{Error: "falha ao salvar o perfil"})
			return
		}

		writeJSON(w, http.StatusOK, profileJSON{
			Exists:    true,
			Name:      p.Name,
			Phone:     p.Phone,
			WhatsApp:  p.WhatsApp,
			Instagram: p.Instagram,
			TikTok:    p.TikTok,
		})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
	}
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var in struct {
			Key string `json:"key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "requisição inválida"})
			return
		}
		sess.SetKey(in.Key)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Selected bool `json:"selected"`
	}{Selected: sess.Selected()})
}

type shareResponse struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// handleShare resolves the share intent for a finished ad. WhatsApp gets the
// composed text in the URL; Instagram and TikTok take no prefilled text, so
// the client copies Text before opening URL.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	snap := sess.Controller().Snapshot()
	if snap.State != flow.StatePlaying {
		writeJSON(w, http.StatusConflict, apiError{Error: "nenhum anúncio pronto para compartilhar"})
		return
	}

	p, _ := s.store.Profile()
	text := share.Compose(snap.Caption, snap.Link)
	url, ok := share.URL(r.URL.Query().Get("network"), share.Links{
		WhatsApp:  p.WhatsApp,
		Instagram: p.Instagram,
		TikTok:    p.TikTok,
		Phone:     p.Phone,
	}, text)
	if !ok {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "rede desconhecida"})
		return
	}

	writeJSON(w, http.StatusOK, shareResponse{URL: url, Text: text})
}
