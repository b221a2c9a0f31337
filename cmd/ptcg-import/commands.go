package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/codyseavey/ptcg-carddb/internal/blob"
	"github.com/codyseavey/ptcg-carddb/internal/database"
	"github.com/codyseavey/ptcg-carddb/internal/services"
)

var (
	importRate float64
	dryRun     bool
	archive    archiveOptions
)

var cardsCmd = &cobra.Command{
	Use:   "cards <file.json>...",
	Short: "Import card JSON files through the normalization pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mapper := services.NewEnumMapper(services.DefaultEnumTables())

		if dryRun {
			return dryRunCards(mapper, args)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		opts := []services.ImporterOption{services.WithMaxAttempts(cfg.Import.MaxAttempts)}
		if importRate > 0 {
			opts = append(opts, services.WithRateLimit(rate.NewLimiter(rate.Limit(importRate), 1)))
		}
		importer := services.NewCardImporter(db, mapper, logger, opts...)

		var total services.ImportResult
		for _, path := range args {
			cards, err := readCardFile(path)
			if err != nil {
				return err
			}
			res := importer.ImportBatch(ctx, cards)
			total.Success += res.Success
			total.Failed += res.Failed
			total.Errors = append(total.Errors, res.Errors...)
			total.Warnings = append(total.Warnings, res.Warnings...)
			logger.Info("imported file", zap.String("file", path), zap.Int("success", res.Success), zap.Int("failed", res.Failed))
		}

		fmt.Printf("Imported %d cards, %d failed, %d warnings\n", total.Success, total.Failed, len(total.Warnings))
		for _, e := range total.Errors {
			fmt.Println("  ", e)
		}
		if total.Failed > 0 {
			return fmt.Errorf("%d cards failed to import", total.Failed)
		}
		return nil
	},
}

// dryRunCards maps every card without touching the database
func dryRunCards(mapper *services.EnumMapper, paths []string) error {
	importer := services.NewCardImporter(nil, mapper, logger)
	valid, invalid, warnings := 0, 0, 0
	for _, path := range paths {
		cards, err := readCardFile(path)
		if err != nil {
			return err
		}
		for _, in := range cards {
			m, err := importer.Normalize(in)
			if err != nil {
				invalid++
				fmt.Printf("  %s: %v\n", in.WebCardID, err)
				continue
			}
			valid++
			warnings += len(m.Warnings)
			for _, w := range m.Warnings {
				fmt.Println("  warning:", w)
			}
		}
	}
	fmt.Printf("Dry run: %d valid, %d invalid, %d warnings\n", valid, invalid, warnings)
	return nil
}

func readCardFile(path string) ([]services.CardImport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cards, err := services.ParseImportFile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cards, nil
}

var productsCmd = &cobra.Command{
	Use:   "products <file.json>",
	Short: "Upsert scraped products",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		products, err := services.ParseProductFile(f)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		svc := services.NewProductService(db, nil, logger)
		res, err := svc.ImportProducts(cmd.Context(), products)
		if err != nil {
			return err
		}
		fmt.Printf("Total products: %d\nImported: %d\nFailed: %d\n", len(products), res.Imported, res.Failed)
		for _, e := range res.Errors {
			fmt.Println("  ", e)
		}
		return nil
	},
}

// archiveOptions are the archive flags; which apply depends on the kind
type archiveOptions struct {
	processed    bool
	deckCategory string
	deckUserID   string
	region       string
	expansion    string
	thumbnail    bool
	htmlKind     string
}

var archiveCmd = &cobra.Command{
	Use:       "archive <events|decks|images|html> <file>...",
	Short:     "Store scraped documents, card images or HTML pages in the blob store",
	Args:      cobra.MinimumNArgs(2),
	ValidArgs: []string{"events", "decks", "images", "html"},
	RunE: func(cmd *cobra.Command, args []string) error {
		storage, err := openStorage(cmd.Context())
		if err != nil {
			return err
		}
		kind, paths := args[0], args[1:]
		for _, path := range paths {
			id, err := archiveFile(cmd.Context(), storage, kind, path, archive)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			logger.Info("archived file", zap.String("kind", kind), zap.String("id", id))
		}
		return nil
	},
}

// archiveFile stores one file. Images and HTML pages are named after the file
// (jp12345.png is card jp12345); events and decks carry their own id.
func archiveFile(ctx context.Context, storage *services.StorageService, kind, path string, opts archiveOptions) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch kind {
	case "events":
		return storage.StoreEventData(ctx, json.RawMessage(data), opts.processed)
	case "decks":
		return storage.StoreDeckData(ctx, json.RawMessage(data), services.DeckCategory(opts.deckCategory), opts.deckUserID)
	case "images":
		region, err := services.ParseStorageRegion(opts.region)
		if err != nil {
			return "", err
		}
		typ := services.ImageFull
		if opts.thumbnail {
			typ = services.ImageThumbnail
		}
		_, err = storage.StoreCardImage(ctx, region, typ, opts.expansion, name, bytes.NewReader(data))
		return name, err
	case "html":
		region, err := services.ParseStorageRegion(opts.region)
		if err != nil {
			return "", err
		}
		_, err = storage.StoreHTML(ctx, services.HTMLKind(opts.htmlKind), region, name, data)
		return name, err
	}
	return "", fmt.Errorf("unknown archive kind %q, want events, decks, images or html", kind)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run schema and data migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(cfg.Database)
		if err != nil {
			return err
		}
		if err := database.Migrate(db, logger); err != nil {
			return err
		}
		fmt.Println("Migrations complete")
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup-html",
	Short: "Delete archived HTML pages older than 30 days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		storage, err := openStorage(cmd.Context())
		if err != nil {
			return err
		}
		n, err := storage.CleanupHTMLArchives(cmd.Context(), time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d HTML archives\n", n)
		return nil
	},
}

func openStorage(ctx context.Context) (*services.StorageService, error) {
	store, err := blob.Open(ctx, cfg.Storage.Blob, cfg.Storage.DataRoot)
	if err != nil {
		return nil, err
	}
	return services.NewStorageService(store, logger), nil
}

func init() {
	cardsCmd.Flags().Float64Var(&importRate, "rate", 0, "maximum cards per second (0 for unlimited)")
	cardsCmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and map cards without writing")

	archiveCmd.Flags().BoolVar(&archive.processed, "processed", false, "store events as processed rather than raw")
	archiveCmd.Flags().StringVar(&archive.deckCategory, "category", string(services.DeckTournament), "deck category: tournament, meta or user")
	archiveCmd.Flags().StringVar(&archive.deckUserID, "user", "", "owner of user decks")
	archiveCmd.Flags().StringVar(&archive.region, "region", "hk", "image and html region: hk, jp or en")
	archiveCmd.Flags().StringVar(&archive.expansion, "expansion", "", "expansion code of full card images")
	archiveCmd.Flags().BoolVar(&archive.thumbnail, "thumbnail", false, "store images as thumbnails")
	archiveCmd.Flags().StringVar(&archive.htmlKind, "html-kind", string(services.HTMLCard), "html page kind: card, event or expansion")
}
