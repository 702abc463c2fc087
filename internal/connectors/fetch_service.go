package connectors

import (
	"context"

	"github.com/sirupsen/logrus"

	"catalogcsv/internal/storage"
)

// SKUImages is the lookup outcome for one identifier.
type SKUImages struct {
	SKU  string
	URLs []string
	Err  error
}

type FetchResult struct {
	Looked   int
	WithURLs int
	URLs     int
	Failed   int
	Recorded int
}

// FetchService runs a lookup over many identifiers and records what it found. The
// database is optional.
type FetchService struct {
	db     *storage.DB
	lookup ImageLookup
	log    *logrus.Entry
}

func NewFetchService(db *storage.DB, lookup ImageLookup, logger *logrus.Logger) *FetchService {
	if lookup == nil {
		lookup = None{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FetchService{
		db:     db,
		lookup: lookup,
		log:    logger.WithFields(logrus.Fields{"component": "images", "provider": lookup.Name()}),
	}
}

// FetchAll looks up every identifier in order. A failed lookup falls back to the URLs
// recorded by an earlier pass; without those it is logged and reported in its
// SKUImages entry. Only context cancellation stops the loop.
func (s *FetchService) FetchAll(ctx context.Context, skus []string) ([]SKUImages, FetchResult, error) {
	var res FetchResult
	out := make([]SKUImages, 0, len(skus))
	if r, ok := s.lookup.(Refresher); ok {
		r.Refresh()
	}

	for _, sku := range skus {
		if err := ctx.Err(); err != nil {
			return out, res, err
		}
		res.Looked++

		urls, err := s.lookup.ImagesFor(ctx, sku)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, res, ctxErr
			}
			res.Failed++
			log := s.log.WithError(err).WithField("sku", sku)
			recorded, ok := s.recorded(sku)
			if !ok {
				log.Warn("image lookup failed")
				out = append(out, SKUImages{SKU: sku, Err: err})
				continue
			}
			log.WithField("urls", len(recorded)).Warn("image lookup failed, using recorded images")
			res.Recorded++
			urls = recorded
		} else if s.db != nil {
			if err := s.db.UpsertImages(sku, s.lookup.Name(), urls); err != nil {
				s.log.WithError(err).WithField("sku", sku).Warn("record images")
			}
		}
		if len(urls) > 0 {
			res.WithURLs++
			res.URLs += len(urls)
		}
		out = append(out, SKUImages{SKU: sku, URLs: urls})
	}

	s.log.WithFields(logrus.Fields{
		"looked":   res.Looked,
		"withUrls": res.WithURLs,
		"urls":     res.URLs,
		"failed":   res.Failed,
		"recorded": res.Recorded,
	}).Info("image lookup finished")
	return out, res, nil
}

func (s *FetchService) recorded(sku string) ([]string, bool) {
	if s.db == nil {
		return nil, false
	}
	urls, ok, err := s.db.GetImages(sku)
	if err != nil {
		s.log.WithError(err).WithField("sku", sku).Warn("read recorded images")
		return nil, false
	}
	return urls, ok
}
