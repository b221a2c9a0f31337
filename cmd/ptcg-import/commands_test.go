package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codyseavey/ptcg-carddb/internal/blob"
	"github.com/codyseavey/ptcg-carddb/internal/models"
	"github.com/codyseavey/ptcg-carddb/internal/services"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestArchiveFile(t *testing.T) {
	ctx := context.Background()
	store, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)
	storage := services.NewStorageService(store, zap.NewNop())
	src := t.TempDir()

	id, err := archiveFile(ctx, storage, "images", writeFile(t, src, "jp12345.png", "PNG"),
		archiveOptions{region: "jp", expansion: "sv1"})
	require.NoError(t, err)
	assert.Equal(t, "jp12345", id)
	info, rc, err := storage.OpenCardImage(ctx, models.RegionJapan, services.ImageFull, "jp12345")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "images/cards/jp/sv1/jp12345.png", info.Key)
	assert.Equal(t, "PNG", string(body))

	_, err = archiveFile(ctx, storage, "images", writeFile(t, src, "hk00001.png", "T"),
		archiveOptions{thumbnail: true})
	require.NoError(t, err)
	_, err = store.Head(ctx, "images/thumbnails/hk/hk00001.png")
	assert.NoError(t, err)

	_, err = archiveFile(ctx, storage, "html", writeFile(t, src, "sv1.html", "<html></html>"),
		archiveOptions{region: "jp", htmlKind: string(services.HTMLExpansion)})
	require.NoError(t, err)
	_, err = store.Head(ctx, "html/expansions/jp/sv1.html")
	assert.NoError(t, err)

	id, err = archiveFile(ctx, storage, "events", writeFile(t, src, "e.json", `{"eventId":"ev9"}`),
		archiveOptions{processed: true})
	require.NoError(t, err)
	assert.Equal(t, "ev9", id)
	_, err = storage.GetEventData(ctx, "ev9", true)
	assert.NoError(t, err)

	_, err = archiveFile(ctx, storage, "decks", writeFile(t, src, "d.json", `{"deckId":"d9"}`),
		archiveOptions{deckCategory: string(services.DeckMeta)})
	require.NoError(t, err)
	_, err = storage.GetDeckData(ctx, "d9", services.DeckMeta, "")
	assert.NoError(t, err)
}

func TestArchiveFileRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	store, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)
	storage := services.NewStorageService(store, zap.NewNop())
	src := t.TempDir()
	png := writeFile(t, src, "jp1.png", "PNG")

	_, err = archiveFile(ctx, storage, "videos", png, archiveOptions{})
	assert.Error(t, err)

	var verr *services.ValidationError
	_, err = archiveFile(ctx, storage, "images", png, archiveOptions{region: "kr"})
	assert.True(t, errors.As(err, &verr))

	_, err = archiveFile(ctx, storage, "html", writeFile(t, src, "x.html", "<html>"), archiveOptions{htmlKind: "blog"})
	assert.True(t, errors.As(err, &verr))

	_, err = archiveFile(ctx, storage, "events", filepath.Join(src, "missing.json"), archiveOptions{})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
