package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"motion-typo-studio/internal/ad"
	"motion-typo-studio/internal/flow"
	"motion-typo-studio/internal/gemini"
	"motion-typo-studio/internal/mediagroup"
	"motion-typo-studio/internal/share"
	"motion-typo-studio/internal/store"
	"motion-typo-studio/internal/telegram"
)

type Options struct {
	Telegram *telegram.Client
	Creator  *ad.Creator
	Store    *store.Store
	Logger   *slog.Logger
}

type Handler struct {
	tg         *telegram.Client
	creator    *ad.Creator
	store      *store.Store
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator
	drafts     *draftStore
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		tg:      opts.Telegram,
		creator: opts.Creator,
		store:   opts.Store,
		logger:  logger,
	}
	h.drafts = newDraftStore(func() *flow.Controller {
		return flow.NewController(flow.Options{
			Generator: opts.Creator,
			Sink:      opts.Store,
			Logger:    logger,
		})
	})
	return h
}

func (h *Handler) SetAlbumAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.Message == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, msg)
	}

	if len(msg.Photo) > 0 {
		return h.handlePhoto(ctx, chatID, userID, msg)
	}

	if msg.Text != "" {
		return h.handleText(chatID)
	}

	return nil
}

// HandleAlbum consumes a flushed photo album: the first frame becomes the
// drafted scene reference. A /ad caption on the album fires the run at once.
func (h *Handler) HandleAlbum(ctx context.Context, album mediagroup.Album) {
	if len(album.FileIDs) == 0 {
		return
	}

	if err := h.stageReference(ctx, album.ChatID, album.UserID, album.FileIDs[0], len(album.FileIDs)); err != nil {
		h.logger.Error("album reference failed", "err", err)
		_ = h.tg.SendText(album.ChatID, "❌ Não consegui baixar as fotos do álbum. Tente de novo.")
		return
	}

	if product, ok := adCommandArgs(album.Caption); ok {
		if err := h.runAd(ctx, album.ChatID, album.UserID, product); err != nil {
			h.logger.Error("album ad run failed", "err", err)
		}
		return
	}

	_ = h.tg.SendText(album.ChatID, fmt.Sprintf(
		"📸 Álbum recebido! Usei a primeira das %d fotos como referência de cena.\nAgora envie /ad <texto do produto>.",
		len(album.FileIDs)))
}

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return h.tg.SendText(chatID,
			"🎬 Motion Typo Studio\n\n"+
				"Eu transformo a descrição do seu produto em um anúncio de tipografia animada: "+
				"uma imagem com o texto em destaque e um vídeo curto com legenda promocional.\n\n"+
				"Comandos:\n"+
				"/ad <texto do produto> — gerar o anúncio\n"+
				"/estilo <texto do produto> — sugerir um clima visual\n"+
				"/estilos — catálogo de estilos e tipografias\n"+
				"/cancelar — limpar o rascunho\n\n"+
				"Envie uma foto (ou álbum) para eu recriar o cenário dela no anúncio.",
		)
	case "help":
		return h.tg.SendText(chatID,
			"🎬 Como usar\n\n"+
				"1. (Opcional) Envie uma foto do ambiente que o anúncio deve imitar.\n"+
				"2. (Opcional) /estilo <texto do produto> para eu sugerir um clima visual.\n"+
				"3. /ad <texto do produto> — eu gero a imagem tipográfica e animo o vídeo.\n\n"+
				"O rascunho (foto e estilo) vale para os próximos /ad até você usar /cancelar.\n"+
				"A geração do vídeo leva alguns minutos; acompanhe pela mensagem de status.",
		)
	case "ad":
		return h.runAd(ctx, chatID, userID, msg.CommandArguments())
	case "estilo":
		return h.suggestStyle(ctx, chatID, userID, msg.CommandArguments())
	case "estilos":
		return h.tg.SendText(chatID, catalogText())
	case "cancelar":
		h.drafts.Clear(chatID, userID)
		return h.tg.SendText(chatID, "✅ Rascunho limpo: sem foto de referência e sem estilo fixado.")
	default:
		return h.tg.SendText(chatID, "❌ Comando desconhecido. Use /help.")
	}
}

func (h *Handler) handleText(chatID int64) error {
	return h.tg.SendText(chatID,
		"Para gerar um anúncio, use /ad <texto do produto>.\nExemplo: /ad Tênis Esportivo Azul")
}

func (h *Handler) handlePhoto(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) error {
	photo := msg.Photo[len(msg.Photo)-1]

	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Photo{
			ChatID:       chatID,
			UserID:       userID,
			Username:     msg.From.UserName,
			MediaGroupID: msg.MediaGroupID,
			Caption:      msg.Caption,
			FileID:       photo.FileID,
		})
		return nil
	}

	if err := h.stageReference(ctx, chatID, userID, photo.FileID, 1); err != nil {
		h.logger.Error("photo reference failed", "err", err)
		return h.tg.SendText(chatID, "❌ Não consegui baixar a foto. Tente de novo.")
	}

	if product, ok := adCommandArgs(msg.Caption); ok {
		return h.runAd(ctx, chatID, userID, product)
	}

	return h.tg.SendText(chatID,
		"📸 Referência recebida! O anúncio vai recriar esse cenário.\nAgora envie /ad <texto do produto>.")
}

// stageReference downloads one Telegram photo and stages it as the chat's
// scene reference for the next run.
func (h *Handler) stageReference(ctx context.Context, chatID, userID int64, fileID string, frames int) error {
	h.tg.SendTyping(chatID)

	data, mimeType, err := h.tg.DownloadFile(ctx, fileID)
	if err != nil {
		return err
	}

	h.drafts.Update(chatID, userID, func(d *Draft) {
		d.Reference = &gemini.Blob{Data: data, Mime: mimeType}
		d.Frames = frames
	})
	return nil
}

func (h *Handler) suggestStyle(ctx context.Context, chatID, userID int64, args string) error {
	product := strings.TrimSpace(args)
	if product == "" {
		return h.tg.SendText(chatID, "❌ Diga o produto.\nExemplo: /estilo Tênis Esportivo Azul")
	}

	h.tg.SendTyping(chatID)
	suggestion := h.creator.SuggestStyle(ctx, product)

	h.drafts.Update(chatID, userID, func(d *Draft) {
		d.Style = suggestion
	})

	return h.tg.SendText(chatID, fmt.Sprintf(
		"🎨 Estilo sugerido: %s\n\nFixei esse clima para o próximo /ad. Rode /estilo de novo para trocar, ou /cancelar para limpar.",
		suggestion))
}

// runAd drives one full generation against the chat's controller. Submit is
// synchronous, so by the time it returns the run has either played or failed;
// the OnChange hook keeps a single status message updated along the way.
func (h *Handler) runAd(ctx context.Context, chatID, userID int64, args string) error {
	product := strings.TrimSpace(args)
	if product == "" {
		return h.tg.SendText(chatID, "❌ Descreva o produto.\nExemplo: /ad Tênis Esportivo Azul")
	}

	draft := h.drafts.Get(chatID, userID)
	ctrl := h.drafts.Controller(chatID, userID)

	if ctrl.Snapshot().State.Busy() {
		return h.tg.SendText(chatID, "⏳ Já existe uma geração em andamento neste chat. Aguarde ela terminar.")
	}

	statusID, err := h.tg.SendStatus(chatID, "🎬 Preparando a geração do anúncio...")
	if err != nil {
		return err
	}
	ctrl.SetOnChange(func(snap flow.Snapshot) {
		_ = h.tg.EditText(chatID, statusID, statusLine(snap))
	})

	outcome := ctrl.Submit(ctx, ad.Request{
		ProductText: product,
		Style:       draft.Style,
		Typography:  draft.Typography,
		Link:        draft.Link,
		Reference:   draft.Reference,
	})
	switch outcome {
	case flow.OutcomeBusy:
		return h.tg.EditText(chatID, statusID, "⏳ Já existe uma geração em andamento neste chat.")
	case flow.OutcomeNeedKey:
		return h.tg.EditText(chatID, statusID, "❌ Nenhuma chave de API configurada no servidor.")
	case flow.OutcomeEmptyText:
		return h.tg.EditText(chatID, statusID, "❌ Descreva o produto.")
	}

	if snap := ctrl.Snapshot(); snap.State == flow.StateError {
		// The status edit from OnChange already shows the failure.
		return nil
	}

	result := ctrl.Result()

	if !result.Image.Empty() {
		if err := h.tg.SendPhoto(chatID, result.Image.Data, result.Image.Mime, ""); err != nil {
			h.logger.Warn("still image send failed", "err", err)
		}
	}

	h.tg.SendUploadingVideo(chatID)
	if err := h.tg.SendVideo(chatID, result.Video.Data, result.Video.Mime, share.Compose(result.Caption, result.Link)); err != nil {
		return err
	}

	// The result is delivered; free the controller for the next /ad.
	ctrl.Reset()
	return nil
}

func statusLine(snap flow.Snapshot) string {
	switch snap.State {
	case flow.StateGeneratingImage:
		return "🎨 " + snap.Status
	case flow.StateGeneratingVideo:
		return "🎥 " + snap.Status
	case flow.StatePlaying:
		return "✅ " + snap.Status
	case flow.StateError:
		return "❌ " + snap.Error
	default:
		return "⏳ Aguardando..."
	}
}

func catalogText() string {
	var b strings.Builder
	b.WriteString("🎨 Estilos visuais:\n")
	for _, opt := range ad.VisualStyles() {
		if opt.Key == "" {
			continue
		}
		b.WriteString("• " + opt.Name + "\n")
	}
	b.WriteString("\n🔤 Tipografias:\n")
	for _, opt := range ad.TypographyStyles() {
		if opt.Key == "" {
			continue
		}
		b.WriteString("• " + opt.Name + "\n")
	}
	b.WriteString("\nSem estilo fixado eu sorteio um do catálogo a cada /ad.")
	return b.String()
}

// adCommandArgs extracts the product text from a "/ad ..." photo caption.
// Captions carry no command entities, so this is plain prefix matching.
func adCommandArgs(caption string) (string, bool) {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return "", false
	}

	fields := strings.SplitN(caption, " ", 2)
	cmd := strings.ToLower(fields[0])
	if cmd != "/ad" && !strings.HasPrefix(cmd, "/ad@") {
		return "", false
	}
	if len(fields) < 2 {
		return "", true
	}
	return strings.TrimSpace(fields[1]), true
}
