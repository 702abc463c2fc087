package drive

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"catalogcsv/internal/config"
	"catalogcsv/internal/util"
)

const (
	folderQuery  = "mimeType='application/vnd.google-apps.folder' and trashed=false"
	listFields   = "nextPageToken, files(id, name, mimeType)"
	pageSize     = 1000
	maxAttempts  = 5
	downloadURLf = "https://drive.google.com/uc?export=download&id=%s"
)

type file struct {
	ID   string
	Name string
}

// lister is one page of a files.list call.
type lister interface {
	List(ctx context.Context, query, orderBy, pageToken string) (files []file, next string, err error)
}

// Connector maps product identifiers to Drive folders of the same name and returns the
// images inside them. The folder index is built on first use and kept until Refresh;
// a failed build is retried on the next lookup.
type Connector struct {
	api     lister
	limiter *rateLimiter
	log     *logrus.Entry

	mu      sync.Mutex
	folders map[string]string
}

func NewConnector(cfg config.Config, logger *logrus.Logger) (*Connector, error) {
	if err := cfg.Require("GOOGLE_CLIENT_ID", cfg.GoogleClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GOOGLE_REFRESH_TOKEN", cfg.GoogleRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GoogleRedirectURI,
		Scopes:       []string{driveapi.DriveMetadataReadonlyScope},
	}

	ctx := context.Background()
	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GoogleRefreshToken})
	httpClient := oauth2.NewClient(ctx, tokenSource)
	httpClient.Timeout = time.Duration(cfg.DriveTimeoutMs) * time.Millisecond

	svc, err := driveapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	return newConnector(serviceLister{svc: svc}, cfg.DriveRateLimitRPS, logger), nil
}

func newConnector(api lister, rps int, logger *logrus.Logger) *Connector {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Connector{
		api:     api,
		limiter: newRateLimiter(rps),
		log:     logger.WithField("component", "drive"),
	}
}

func (c *Connector) Name() string { return "drive" }

// Refresh drops the folder index so the next lookup lists folders again.
func (c *Connector) Refresh() {
	c.mu.Lock()
	c.folders = nil
	c.mu.Unlock()
}

func (c *Connector) ImagesFor(ctx context.Context, sku string) ([]string, error) {
	folders, err := c.index(ctx)
	if err != nil {
		return nil, err
	}
	folderID, ok := folders[util.NormalizeSKU(sku)]
	if !ok {
		return nil, nil
	}

	query := fmt.Sprintf("'%s' in parents and mimeType contains 'image/' and trashed=false", folderID)
	images, err := c.listAll(ctx, query, "name")
	if err != nil {
		return nil, fmt.Errorf("list images for %s: %w", sku, err)
	}

	urls := make([]string, 0, len(images))
	for _, img := range images {
		urls = append(urls, fmt.Sprintf(downloadURLf, img.ID))
	}
	return urls, nil
}

// index returns the folder index, listing every folder when there is none yet. A
// folder name that normalizes to an invalid identifier is ignored; for duplicate names
// the first listed folder wins.
func (c *Connector) index(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.folders != nil {
		return c.folders, nil
	}

	listed, err := c.listAll(ctx, folderQuery, "name")
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	folders := make(map[string]string, len(listed))
	for _, f := range listed {
		if !util.IsValidSKU(f.Name) {
			continue
		}
		key := util.NormalizeSKU(f.Name)
		if _, taken := folders[key]; taken {
			continue
		}
		folders[key] = f.ID
	}
	c.folders = folders
	c.log.WithField("folders", len(folders)).Info("drive folder index built")
	return folders, nil
}

func (c *Connector) listAll(ctx context.Context, query, orderBy string) ([]file, error) {
	var all []file
	pageToken := ""
	for {
		files, next, err := c.listPage(ctx, query, orderBy, pageToken)
		if err != nil {
			return nil, err
		}
		all = append(all, files...)
		if next == "" {
			return all, nil
		}
		pageToken = next
	}
}

func (c *Connector) listPage(ctx context.Context, query, orderBy, pageToken string) ([]file, string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.waitTurn(ctx); err != nil {
			return nil, "", err
		}

		files, next, err := c.api.List(ctx, query, orderBy, pageToken)
		if err == nil {
			return files, next, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == maxAttempts {
			break
		}

		backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
		c.log.WithError(err).WithField("attempt", attempt).Debug("drive list retry")
		if err := sleepCtx(ctx, backoff); err != nil {
			return nil, "", err
		}
	}
	return nil, "", lastErr
}

func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

type serviceLister struct {
	svc *driveapi.Service
}

func (l serviceLister) List(ctx context.Context, query, orderBy, pageToken string) ([]file, string, error) {
	call := l.svc.Files.List().
		Q(query).
		PageSize(pageSize).
		Fields(listFields).
		OrderBy(orderBy).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, "", err
	}
	out := make([]file, 0, len(resp.Files))
	for _, f := range resp.Files {
		out = append(out, file{ID: f.Id, Name: f.Name})
	}
	return out, resp.NextPageToken, nil
}
