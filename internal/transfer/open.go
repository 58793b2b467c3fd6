package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"scantocookbook/internal/config"
	"scantocookbook/internal/retry"
	"scantocookbook/internal/services"
)

const webdavTimeout = 5 * time.Minute

// OpenBackend builds the backend described by store.
func OpenBackend(ctx context.Context, store config.Store) (Backend, error) {
	switch store.Kind {
	case config.StoreWebDAV, "":
		return NewWebDAV(store.Host, store.Username, store.Password, webdavTimeout), nil
	case config.StoreS3:
		return NewS3(ctx, S3Options{
			Bucket:          store.Bucket,
			Prefix:          store.Prefix,
			Region:          store.Region,
			Endpoint:        store.Endpoint,
			AccessKeyID:     store.Username,
			SecretAccessKey: store.Password,
		})
	case config.StoreLocal:
		return NewLocal(store.Root)
	default:
		return nil, fmt.Errorf("unsupported store kind %q", store.Kind)
	}
}

// Open builds a retrying Client for one configured store.
func Open(ctx context.Context, name string, store config.Store, policy retry.Policy, logger *slog.Logger) (*Client, error) {
	backend, err := OpenBackend(ctx, store)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transfer", "open", name+" store", err)
	}
	return NewClient(name, backend, policy, logger), nil
}
