package app

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"catalogcsv/internal/config"
	"catalogcsv/internal/connectors"
	driveconnector "catalogcsv/internal/connectors/drive"
	"catalogcsv/internal/connectors/localfs"
	"catalogcsv/internal/pipeline"
	"catalogcsv/internal/push"
	"catalogcsv/internal/storage"
)

var _ connectors.Refresher = (*driveconnector.Connector)(nil)

// Paths maps configured file locations onto a pipeline run.
func Paths(cfg config.Config) pipeline.Paths {
	return pipeline.Paths{
		InputDir:     cfg.InputDir,
		Descriptions: cfg.DescriptionsFile,
		Tags:         cfg.TagsFile,
		Template:     cfg.TemplateFile,
		CatalogJSON:  cfg.CatalogJSON,
		ProductsCSV:  cfg.ProductsCSV,
		ProductsXLSX: cfg.ProductsXLSX,
	}
}

// NewRunner wires the configured image provider and uploader into a pipeline runner.
// db may be nil.
func NewRunner(cfg config.Config, db *storage.DB, logger *logrus.Logger) (*pipeline.Runner, error) {
	lookup, err := MakeImageLookup(cfg, logger)
	if err != nil {
		return nil, err
	}
	var images *connectors.FetchService
	if lookup != nil {
		images = connectors.NewFetchService(db, lookup, logger)
	}

	opts := pipeline.Options{
		Paths:  Paths(cfg),
		Images: images,
		DB:     db,
		Logger: logger,
	}
	if cfg.PushEnabled {
		pusher, err := push.New(cfg, push.ExecRunner{}, logger)
		if err != nil {
			return nil, fmt.Errorf("push: %w", err)
		}
		opts.Pusher = pusher
	}
	return pipeline.NewRunner(opts), nil
}

// MakeImageLookup returns nil when image augmentation is switched off.
func MakeImageLookup(cfg config.Config, logger *logrus.Logger) (connectors.ImageLookup, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ImageProvider)) {
	case "drive":
		conn, err := driveconnector.NewConnector(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("drive: %w", err)
		}
		return conn, nil
	case "local":
		return localfs.NewConnector(cfg.ImageDir, cfg.ImageBaseURL), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported image provider: %s", cfg.ImageProvider)
	}
}
