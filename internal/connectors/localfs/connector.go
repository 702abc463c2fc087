package localfs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"catalogcsv/internal/util"
)

var imageExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".avif": {},
}

// Connector serves images from <root>/<SKU>/ directories. With a base URL the returned
// URLs are base + "/<dir>/<file>", otherwise they are file paths.
type Connector struct {
	root    string
	baseURL string

	mu      sync.Mutex
	folders map[string]string
}

func NewConnector(root, baseURL string) *Connector {
	return &Connector{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Connector) Name() string { return "local" }

func (c *Connector) ImagesFor(ctx context.Context, sku string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	folders, err := c.index()
	if err != nil {
		return nil, err
	}
	dir, ok := folders[util.NormalizeSKU(sku)]
	if !ok {
		return nil, nil
	}

	entries, err := os.ReadDir(filepath.Join(c.root, dir))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := imageExts[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	urls := make([]string, 0, len(names))
	for _, name := range names {
		urls = append(urls, c.locate(dir, name))
	}
	return urls, nil
}

func (c *Connector) locate(dir, name string) string {
	if c.baseURL == "" {
		return filepath.Join(c.root, dir, name)
	}
	return c.baseURL + "/" + path.Join(url.PathEscape(dir), url.PathEscape(name))
}

// index maps normalized folder names to directory names. A missing root yields an
// empty index.
func (c *Connector) index() (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.folders != nil {
		return c.folders, nil
	}

	folders := map[string]string{}
	entries, err := os.ReadDir(c.root)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() || !util.IsValidSKU(e.Name()) {
			continue
		}
		key := util.NormalizeSKU(e.Name())
		if _, taken := folders[key]; !taken {
			folders[key] = e.Name()
		}
	}
	c.folders = folders
	return folders, nil
}
