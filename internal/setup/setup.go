package setup

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/staffdesk/messenger/internal/attachment"
	"github.com/staffdesk/messenger/internal/config"
	"github.com/staffdesk/messenger/internal/handler"
	"github.com/staffdesk/messenger/internal/markdown"
	"github.com/staffdesk/messenger/internal/roster"
	"github.com/staffdesk/messenger/internal/service"
	"github.com/staffdesk/messenger/internal/storage/blob"
	"github.com/staffdesk/messenger/internal/storage/fs"
	"github.com/staffdesk/messenger/internal/storage/memory"
	"github.com/staffdesk/messenger/internal/storage/pg"
	"github.com/staffdesk/messenger/internal/storage/redis"
	"github.com/staffdesk/messenger/internal/storage/sqlite"
	"github.com/staffdesk/messenger/internal/surface"
	"github.com/staffdesk/messenger/shared/logger"
)

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Config   *config.Config
	Identity *roster.Static
	Storage  service.SnapshotStorage
	Sessions *service.Sessions
	Handler  *handler.Handler

	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// NewStorage opens the snapshot backend selected in cfg.
func NewStorage(ctx context.Context, cfg *config.Config) (service.SnapshotStorage, io.Closer, error) {
	noop := closerFunc(func() error { return nil })
	switch cfg.Public.Storage.Backend {
	case "memory":
		return memory.New(), noop, nil
	case "fs":
		s, err := fs.New(cfg.Public.Storage.FsPath)
		return s, noop, err
	case "sqlite":
		s, err := sqlite.New(ctx, cfg.Public.Storage.SqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "pg":
		s, err := pg.New(ctx, cfg.Private.Pg)
		if err != nil {
			return nil, nil, err
		}
		return s, closerFunc(s.Cleanup), nil
	case "redis":
		s, err := redis.New(ctx, cfg.Private.Redis)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Public.Storage.Backend)
}

// SetupDependencies initializes all dependencies required for the application.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	identity, err := roster.Load(cfg.Public.RosterFile)
	if err != nil {
		return nil, err
	}

	storage, closer, err := NewStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Public.Storage.Backend, err)
	}

	blobs, err := blob.New(cfg.Public.Attachments.Dir)
	if err != nil {
		closer.Close()
		return nil, err
	}

	sessions := service.NewSessions(identity, storage, cfg.Public.Storage.Key)
	attachments := attachment.New(blobs, cfg.Public.Attachments.MaxSizeBytes, cfg.Public.Attachments.PreviewMaxPx,
		attachment.WithMaxDecodedSize(cfg.Public.Attachments.MaxDecodedBytes))
	presenter := surface.NewPresenter(markdown.New())

	logger.Log.Info("dependencies ready",
		"storage", cfg.Public.Storage.Backend,
		"users", len(identity.Roster()),
		"max_attachment", attachment.FormatSize(attachments.MaxSize()))

	return &Dependencies{
		Config:   cfg,
		Identity: identity,
		Storage:  storage,
		Sessions: sessions,
		Handler:  handler.New(sessions, attachments, presenter),
		closers:  []io.Closer{closer},
	}, nil
}

// Close tears down the session and releases the storage backend.
func (d *Dependencies) Close() error {
	d.Sessions.Close()
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
