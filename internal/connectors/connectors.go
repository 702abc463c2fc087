package connectors

import "context"

// ImageLookup resolves a product identifier to its image URLs, primary image first.
// An identifier without images yields an empty list and no error.
type ImageLookup interface {
	Name() string
	ImagesFor(ctx context.Context, sku string) ([]string, error)
}

// Refresher is implemented by lookups that cache listings between passes. FetchAll
// calls Refresh before each pass so new folders are picked up.
type Refresher interface {
	Refresh()
}

// None is the lookup used when image augmentation is switched off.
type None struct{}

func (None) Name() string { return "none" }

func (None) ImagesFor(context.Context, string) ([]string, error) { return nil, nil }
