// Package store persists the two durable pieces of the studio: the single
// user profile and the gallery of finished ads, with the binary assets on
// disk under the media dir and their URLs in sqlite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"motion-typo-studio/internal/flow"
	"motion-typo-studio/internal/gemini"
)

const mediaURLPrefix = "/media/"

type Profile struct {
	Name      string
	Phone     string
	WhatsApp  string
	Instagram string
	TikTok    string
}

type Ad struct {
	ID          string
	ProductText string
	Style       string
	Typography  string
	Caption     string
	Link        string
	ImageURL    string
	VideoURL    string
	CreatedAt   time.Time
}

type Options struct {
	DBPath   string
	MediaDir string
	Logger   *slog.Logger
}

type Store struct {
	db       *sql.DB
	mediaDir string
	logger   *slog.Logger

	mu         sync.Mutex
	profile    Profile
	hasProfile bool
}

func Open(opts Options) (*Store, error) {
	dbPath := strings.TrimSpace(opts.DBPath)
	if dbPath == "" {
		dbPath = "studio.db"
	}
	mediaDir := strings.TrimSpace(opts.MediaDir)
	if mediaDir == "" {
		mediaDir = "media"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, mediaDir: mediaDir, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	// The profile is read exactly once here; afterwards only SaveProfile
	// touches it.
	if err := s.loadProfile(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("store opened", "db", dbPath, "media_dir", mediaDir)
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) MediaDir() string { return s.mediaDir }

func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS profile (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			whatsapp TEXT NOT NULL DEFAULT '',
			instagram TEXT NOT NULL DEFAULT '',
			tiktok TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ads (
			id TEXT PRIMARY KEY,
			product_text TEXT NOT NULL,
			style TEXT NOT NULL DEFAULT '',
			typography TEXT NOT NULL DEFAULT '',
			caption TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			video_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ads_created_at ON ads(created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) loadProfile() error {
	row := s.db.QueryRow(`SELECT name, phone, whatsapp, instagram, tiktok FROM profile WHERE id = 1`)

	var p Profile
	err := row.Scan(&p.Name, &p.Phone, &p.WhatsApp, &p.Instagram, &p.TikTok)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("load profile: %w", err)
	}

	s.mu.Lock()
	s.profile = p
	s.hasProfile = true
	s.mu.Unlock()
	return nil
}

// Profile returns the in-memory copy loaded at startup (or written by the
// last save) and whether one exists at all.
func (s *Store) Profile() (Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile, s.hasProfile
}

// SaveProfile overwrites the single record wholesale.
func (s *Store) SaveProfile(ctx context.Context, p Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile (id, name, phone, whatsapp, instagram, tiktok, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			whatsapp = excluded.whatsapp,
			instagram = excluded.instagram,
			tiktok = excluded.tiktok,
			updated_at = excluded.updated_at`,
		p.Name, p.Phone, p.WhatsApp, p.Instagram, p.TikTok, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	s.mu.Lock()
	s.profile = p
	s.hasProfile = true
	s.mu.Unlock()

	s.logger.Info("profile saved", "name", p.Name)
	return nil
}

// SaveImage writes the generated key visual into the media dir and returns
// its locally served URL.
func (s *Store) SaveImage(ctx context.Context, id string, img gemini.Blob) (string, error) {
	return s.saveMedia(id, img, ".png")
}

// SaveVideo writes the downloaded clip into the media dir and returns its
// locally served URL.
func (s *Store) SaveVideo(ctx context.Context, id string, vid gemini.Blob) (string, error) {
	return s.saveMedia(id, vid, ".mp4")
}

func (s *Store) saveMedia(id string, payload gemini.Blob, fallbackExt string) (string, error) {
	if payload.Empty() {
		return "", errors.New("empty media payload")
	}

	name := filepath.Base(id) + extensionFor(payload.Mime, fallbackExt)
	path := filepath.Join(s.mediaDir, name)
	if err := os.WriteFile(path, payload.Data, 0o644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}

	return mediaURLPrefix + name, nil
}

func extensionFor(mimeType, fallback string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "video/mp4":
		return ".mp4"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return fallback
}

// SaveAd records a finished generation for the gallery.
func (s *Store) SaveAd(ctx context.Context, rec flow.AdRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ads (id, product_text, style, typography, caption, link, image_url, video_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ProductText, rec.Style, rec.Typography, rec.Caption, rec.Link, rec.ImageURL, rec.VideoURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save ad: %w", err)
	}
	return nil
}

// RecentAds lists finished ads, newest first, for the gallery carousel.
func (s *Store) RecentAds(ctx context.Context, limit int) ([]Ad, error) {
	if limit <= 0 {
		limit = 12
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_text, style, typography, caption, link, image_url, video_url, created_at
		FROM ads
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list ads: %w", err)
	}
	defer rows.Close()

	var out []Ad
	for rows.Next() {
		var a Ad
		if err := rows.Scan(&a.ID, &a.ProductText, &a.Style, &a.Typography, &a.Caption, &a.Link, &a.ImageURL, &a.VideoURL, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ad: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
