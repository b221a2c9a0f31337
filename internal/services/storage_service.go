package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/codyseavey/ptcg-carddb/internal/blob"
	"github.com/codyseavey/ptcg-carddb/internal/metrics"
	"github.com/codyseavey/ptcg-carddb/internal/models"
)

// HTMLArchiveMaxAge is how long scraped HTML pages are kept
const HTMLArchiveMaxAge = 30 * 24 * time.Hour

// missingImageTTL bounds how long a failed image lookup is remembered, so
// images written by other processes show up within this window
const missingImageTTL = time.Minute

type ImageType string

const (
	ImageFull      ImageType = "full"
	ImageThumbnail ImageType = "thumbnail"
)

type HTMLKind string

const (
	HTMLCard      HTMLKind = "card"
	HTMLEvent     HTMLKind = "event"
	HTMLExpansion HTMLKind = "expansion"
)

type DeckCategory string

const (
	DeckTournament DeckCategory = "tournament"
	DeckUser       DeckCategory = "user"
	DeckMeta       DeckCategory = "meta"
)

// StorageStats summarises the data root
type StorageStats struct {
	TotalImages      int       `json:"totalImages"`
	TotalThumbnails  int       `json:"totalThumbnails"`
	TotalHTMLFiles   int       `json:"totalHTMLFiles"`
	TotalEvents      int       `json:"totalEvents"`
	TotalDecks       int       `json:"totalDecks"`
	TotalStorageSize int64     `json:"totalStorageSize"`
	LastUpdated      time.Time `json:"lastUpdated"`
}

// StorageService reads and writes scraped artefacts in the blob store
type StorageService struct {
	store         blob.Store
	imageKeys     *expirable.LRU[string, string]
	missingImages *expirable.LRU[string, struct{}]
	logger        *zap.Logger
}

func NewStorageService(store blob.Store, logger *zap.Logger) *StorageService {
	return &StorageService{
		store:         store,
		imageKeys:     expirable.NewLRU[string, string](4096, nil, time.Hour),
		missingImages: expirable.NewLRU[string, struct{}](4096, nil, missingImageTTL),
		logger:        logger.Named("storage"),
	}
}

// ParseStorageRegion accepts hk, jp or en in any case
func ParseStorageRegion(s string) (models.Region, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hk":
		return models.RegionHongKong, nil
	case "jp":
		return models.RegionJapan, nil
	case "en":
		return models.RegionEnglish, nil
	}
	return "", validationErrorf("invalid region %q", s)
}

func ParseImageType(s string) (ImageType, error) {
	switch ImageType(strings.ToLower(strings.TrimSpace(s))) {
	case "", ImageFull:
		return ImageFull, nil
	case ImageThumbnail:
		return ImageThumbnail, nil
	}
	return "", validationErrorf("invalid image type %q", s)
}

// Identifiers become path segments, so they must be a single plain segment
func checkSegment(kind, id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return validationErrorf("invalid %s %q", kind, id)
	}
	return nil
}

func imagePrefix(region models.Region, typ ImageType) string {
	if typ == ImageThumbnail {
		return "images/thumbnails/" + region.StorageDir() + "/"
	}
	return "images/cards/" + region.StorageDir() + "/"
}

// CardImageKey is where a full card image is stored. Images without an
// expansion sit directly under the region directory.
func CardImageKey(region models.Region, expansionCode, webCardID string) string {
	if expansionCode == "" {
		return imagePrefix(region, ImageFull) + webCardID + ".png"
	}
	return imagePrefix(region, ImageFull) + strings.ToLower(expansionCode) + "/" + webCardID + ".png"
}

func ThumbnailKey(region models.Region, webCardID string) string {
	return imagePrefix(region, ImageThumbnail) + webCardID + ".png"
}

// StoreCardImage saves a PNG under the card image layout
func (s *StorageService) StoreCardImage(ctx context.Context, region models.Region, typ ImageType, expansionCode, webCardID string, r io.Reader) (blob.Info, error) {
	if err := checkSegment("webCardId", webCardID); err != nil {
		return blob.Info{}, err
	}
	key := ThumbnailKey(region, webCardID)
	if typ == ImageFull {
		if expansionCode != "" {
			if err := checkSegment("expansion code", expansionCode); err != nil {
				return blob.Info{}, err
			}
		}
		key = CardImageKey(region, expansionCode, webCardID)
	}
	info, err := s.store.Put(ctx, key, r, blob.PutOptions{ContentType: "image/png"})
	if err != nil {
		return blob.Info{}, err
	}
	cacheKey := imageCacheKey(region, typ, webCardID)
	s.missingImages.Remove(cacheKey)
	s.imageKeys.Add(cacheKey, key)
	return info, nil
}

func imageCacheKey(region models.Region, typ ImageType, webCardID string) string {
	return string(typ) + ":" + region.StorageDir() + ":" + webCardID
}

// OpenCardImage finds a card image by web card id. Full images may sit in any
// expansion subdirectory, so the location is looked up once and cached.
func (s *StorageService) OpenCardImage(ctx context.Context, region models.Region, typ ImageType, webCardID string) (blob.Info, io.ReadCloser, error) {
	if err := checkSegment("webCardId", webCardID); err != nil {
		return blob.Info{}, nil, err
	}
	notFound := notFoundf("Image not found for card %s", webCardID)
	cacheKey := imageCacheKey(region, typ, webCardID)
	if s.missingImages.Contains(cacheKey) {
		metrics.StorageReadsTotal.WithLabelValues("image", "missing").Inc()
		return blob.Info{}, nil, notFound
	}

	if key, ok := s.imageKeys.Get(cacheKey); ok {
		info, rc, err := s.store.Get(ctx, key)
		if err == nil {
			metrics.StorageReadsTotal.WithLabelValues("image", "hit").Inc()
			return info, rc, nil
		}
		// moved or deleted since it was cached
		s.imageKeys.Remove(cacheKey)
		if !errors.Is(err, blob.ErrNotFound) {
			return blob.Info{}, nil, err
		}
	}

	key, err := s.findImageKey(ctx, region, typ, webCardID)
	if err != nil {
		return blob.Info{}, nil, err
	}
	if key == "" {
		s.rememberMissing(cacheKey)
		return blob.Info{}, nil, notFound
	}
	info, rc, err := s.store.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		s.rememberMissing(cacheKey)
		return blob.Info{}, nil, notFound
	}
	if err != nil {
		return blob.Info{}, nil, err
	}
	s.imageKeys.Add(cacheKey, key)
	metrics.StorageReadsTotal.WithLabelValues("image", "hit").Inc()
	return info, rc, nil
}

func (s *StorageService) rememberMissing(cacheKey string) {
	metrics.StorageReadsTotal.WithLabelValues("image", "missing").Inc()
	s.missingImages.Add(cacheKey, struct{}{})
}

func (s *StorageService) findImageKey(ctx context.Context, region models.Region, typ ImageType, webCardID string) (string, error) {
	if typ == ImageThumbnail {
		return ThumbnailKey(region, webCardID), nil
	}
	infos, err := s.store.List(ctx, imagePrefix(region, typ))
	if err != nil {
		return "", fmt.Errorf("failed to list card images: %w", err)
	}
	want := webCardID + ".png"
	for _, info := range infos {
		if path.Base(info.Key) == want {
			return info.Key, nil
		}
	}
	return "", nil
}

func htmlKey(kind HTMLKind, region models.Region, identifier string) (string, error) {
	if err := checkSegment("identifier", identifier); err != nil {
		return "", err
	}
	switch kind {
	case HTMLCard:
		return "html/cards/" + region.StorageDir() + "/" + identifier + ".html", nil
	case HTMLEvent:
		return "html/events/" + identifier + ".html", nil
	case HTMLExpansion:
		return "html/expansions/" + region.StorageDir() + "/" + identifier + ".html", nil
	}
	return "", validationErrorf("invalid html kind %q", kind)
}

// StoreHTML archives a scraped page
func (s *StorageService) StoreHTML(ctx context.Context, kind HTMLKind, region models.Region, identifier string, content []byte) (blob.Info, error) {
	key, err := htmlKey(kind, region, identifier)
	if err != nil {
		return blob.Info{}, err
	}
	return s.store.Put(ctx, key, bytes.NewReader(content), blob.PutOptions{ContentType: "text/html; charset=utf-8"})
}

func eventKey(eventID string, processed bool) string {
	if processed {
		return "events/processed/" + eventID + ".json"
	}
	return "events/raw/" + eventID + ".json"
}

func deckKey(category DeckCategory, userID, deckID string) (string, error) {
	switch category {
	case "", DeckTournament:
		return "decks/tournament/" + deckID + ".json", nil
	case DeckMeta:
		return "decks/meta/" + deckID + ".json", nil
	case DeckUser:
		if userID == "" {
			// without a user the deck is filed with the category itself
			return "decks/user/" + deckID + ".json", nil
		}
		if err := checkSegment("userId", userID); err != nil {
			return "", err
		}
		return "decks/user/" + userID + "/" + deckID + ".json", nil
	}
	return "", validationErrorf("invalid deck category %q", category)
}

// StoreEventData saves an event document. The id is read from its eventId field.
func (s *StorageService) StoreEventData(ctx context.Context, data json.RawMessage, processed bool) (string, error) {
	id, err := documentID(data, "eventId")
	if err != nil {
		return "", err
	}
	return id, s.putJSON(ctx, eventKey(id, processed), data)
}

// StoreDeckData saves a deck document. The id is read from its deckId field.
func (s *StorageService) StoreDeckData(ctx context.Context, data json.RawMessage, category DeckCategory, userID string) (string, error) {
	id, err := documentID(data, "deckId")
	if err != nil {
		return "", err
	}
	key, err := deckKey(category, userID, id)
	if err != nil {
		return "", err
	}
	return id, s.putJSON(ctx, key, data)
}

func (s *StorageService) GetEventData(ctx context.Context, eventID string, processed bool) (json.RawMessage, error) {
	if err := checkSegment("eventId", eventID); err != nil {
		return nil, err
	}
	data, err := s.readJSON(ctx, "event", eventKey(eventID, processed))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, notFoundf("Event data not found for %s", eventID)
	}
	return data, err
}

func (s *StorageService) GetDeckData(ctx context.Context, deckID string, category DeckCategory, userID string) (json.RawMessage, error) {
	if err := checkSegment("deckId", deckID); err != nil {
		return nil, err
	}
	key, err := deckKey(category, userID, deckID)
	if err != nil {
		return nil, err
	}
	data, err := s.readJSON(ctx, "deck", key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, notFoundf("Deck data not found for %s", deckID)
	}
	return data, err
}

func documentID(data json.RawMessage, field string) (string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", validationErrorf("document must be a JSON object")
	}
	var id string
	if raw, ok := doc[field]; !ok || json.Unmarshal(raw, &id) != nil {
		return "", validationErrorf("document must have a string %s", field)
	}
	if err := checkSegment(field, id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *StorageService) putJSON(ctx context.Context, key string, data json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return validationErrorf("invalid JSON document: %v", err)
	}
	if _, err := s.store.Put(ctx, key, &buf, blob.PutOptions{ContentType: "application/json"}); err != nil {
		return err
	}
	s.logger.Info("stored document", zap.String("key", key))
	return nil
}

func (s *StorageService) readJSON(ctx context.Context, kind, key string) (json.RawMessage, error) {
	_, rc, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			metrics.StorageReadsTotal.WithLabelValues(kind, "missing").Inc()
			s.logger.Warn("document not found", zap.String("key", key))
		}
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("stored %s %s is not valid JSON", kind, key)
	}
	metrics.StorageReadsTotal.WithLabelValues(kind, "hit").Inc()
	return data, nil
}

// Stats counts what is stored under each section of the data root
func (s *StorageService) Stats(ctx context.Context) (*StorageStats, error) {
	all, err := s.store.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list storage: %w", err)
	}
	stats := &StorageStats{LastUpdated: time.Now().UTC()}
	for _, info := range all {
		stats.TotalStorageSize += info.Size
		key := info.Key
		switch {
		case strings.HasPrefix(key, "images/cards/") && strings.HasSuffix(key, ".png"):
			stats.TotalImages++
		case strings.HasPrefix(key, "images/thumbnails/") && strings.HasSuffix(key, ".png"):
			stats.TotalThumbnails++
		case strings.HasPrefix(key, "html/") && strings.HasSuffix(key, ".html"):
			stats.TotalHTMLFiles++
		case (strings.HasPrefix(key, "events/raw/") || strings.HasPrefix(key, "events/processed/")) && strings.HasSuffix(key, ".json"):
			stats.TotalEvents++
		case strings.HasPrefix(key, "decks/") && strings.HasSuffix(key, ".json"):
			stats.TotalDecks++
		}
	}
	return stats, nil
}

// htmlCleanupPrefixes are the archives subject to expiry. Expansion pages are kept.
var htmlCleanupPrefixes = []string{
	"html/cards/hk/",
	"html/cards/jp/",
	"html/cards/en/",
	"html/events/",
}

// CleanupHTMLArchives deletes archived pages last modified before now minus
// HTMLArchiveMaxAge. A failing directory is logged and skipped.
func (s *StorageService) CleanupHTMLArchives(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-HTMLArchiveMaxAge)
	deleted := 0
	for _, prefix := range htmlCleanupPrefixes {
		infos, err := s.store.List(ctx, prefix)
		if err != nil {
			if ctx.Err() != nil {
				return deleted, ctx.Err()
			}
			s.logger.Warn("failed to list html archives", zap.String("prefix", prefix), zap.Error(err))
			continue
		}
		for _, info := range infos {
			if !strings.HasSuffix(info.Key, ".html") || !info.LastModified.Before(cutoff) {
				continue
			}
			if err := s.store.Delete(ctx, info.Key); err != nil && !errors.Is(err, blob.ErrNotFound) {
				s.logger.Warn("failed to delete html archive", zap.String("key", info.Key), zap.Error(err))
				continue
			}
			deleted++
		}
	}
	metrics.HTMLArchivesDeletedTotal.Add(float64(deleted))
	s.logger.Info("cleaned up old html archives", zap.Int("deleted", deleted))
	return deleted, nil
}

// NewCleanupScheduler runs CleanupHTMLArchives on schedule. An empty schedule
// returns nil and nothing is scheduled.
func NewCleanupScheduler(ctx context.Context, s *StorageService, schedule string) (*cron.Cron, error) {
	if strings.TrimSpace(schedule) == "" {
		return nil, nil
	}
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := s.CleanupHTMLArchives(ctx, time.Now()); err != nil {
			s.logger.Error("html archive cleanup failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	return c, nil
}
