package blob

import (
	"context"
	"fmt"

	"github.com/codyseavey/ptcg-carddb/internal/config"
)

// Open returns the store selected by cfg.Driver. The filesystem driver is
// rooted at dataRoot.
func Open(ctx context.Context, cfg config.BlobConfig, dataRoot string) (Store, error) {
	switch Driver(cfg.Driver) {
	case "", DriverFilesystem:
		return NewFSStore(dataRoot)
	case DriverS3:
		return NewS3Store(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported blob driver %q", cfg.Driver)
	}
}
