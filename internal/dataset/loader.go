// Package dataset loads the municipality and centre datasets concurrently and
// joins them into density records.
package dataset

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/treedensity/treedensity-cli/internal/density"
	"github.com/treedensity/treedensity-cli/internal/fetcher"
	"github.com/treedensity/treedensity-cli/internal/geodata"
	"github.com/treedensity/treedensity-cli/internal/model"
	"github.com/treedensity/treedensity-cli/internal/store"
)

// DefaultTTL is used when a Loader has no positive TTL.
const DefaultTTL = 24 * time.Hour

// Sources names the two dataset locations. Centres is optional.
type Sources struct {
	Municipalities string
	Centres        string
}

// Dataset is the joined result of one load.
type Dataset struct {
	Features      []geodata.Feature
	Records       []model.Municipality
	OrphanCentres []string
	RunID         string
}

// Loader fetches and decodes datasets. Cache may be nil.
type Loader struct {
	Fetcher fetcher.Fetcher
	Cache   store.Store
	TTL     time.Duration
}

// NewLoader creates a Loader.
func NewLoader(f fetcher.Fetcher, cache store.Store, ttl time.Duration) *Loader {
	return &Loader{Fetcher: f, Cache: cache, TTL: ttl}
}

// Load fetches both sources concurrently. A failure of either cancels the
// other and fails the load.
func (l *Loader) Load(ctx context.Context, src Sources) (*Dataset, error) {
	if src.Municipalities == "" {
		return nil, eris.New("dataset: municipalities source is required")
	}
	if l.Fetcher == nil {
		return nil, eris.New("dataset: no fetcher configured")
	}

	runID := uuid.New().String()
	log := zap.L().With(zap.String("component", "dataset"), zap.String("run_id", runID))
	start := time.Now()

	var (
		features []geodata.Feature
		centres  map[string]model.Centre
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := l.loadMunicipalities(gctx, log, src.Municipalities)
		if err != nil {
			return eris.Wrapf(err, "dataset: municipalities %s", src.Municipalities)
		}
		features = f
		return nil
	})
	if src.Centres != "" {
		g.Go(func() error {
			body, err := l.fetch(gctx, log, src.Centres)
			if err != nil {
				return eris.Wrapf(err, "dataset: centres %s", src.Centres)
			}
			c, err := geodata.DecodeCentres(bytes.NewReader(body))
			if err != nil {
				return eris.Wrapf(err, "dataset: centres %s", src.Centres)
			}
			centres = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	joined, orphans := geodata.Join(features, centres)
	records := geodata.Records(joined)

	_, invalid := density.Partition(records)
	for _, m := range invalid {
		log.Warn("municipality has no usable area",
			zap.String("id", m.ID),
			zap.String("name", m.Name),
			zap.Float64("area_km2", m.AreaKm2),
		)
	}
	if len(orphans) > 0 {
		log.Info("centres without municipality", zap.Strings("ids", orphans))
	}

	log.Info("dataset loaded",
		zap.Int("municipalities", len(records)),
		zap.Int("centres", len(centres)),
		zap.Int("invalid_area", len(invalid)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Dataset{
		Features:      joined,
		Records:       records,
		OrphanCentres: orphans,
		RunID:         runID,
	}, nil
}

// IsShapefile reports whether a source names an ESRI shapefile.
func IsShapefile(src string) bool {
	return strings.EqualFold(path.Ext(src), ".shp")
}

func (l *Loader) loadMunicipalities(ctx context.Context, log *zap.Logger, src string) ([]geodata.Feature, error) {
	if IsShapefile(src) {
		if fetcher.IsRemote(src) {
			return nil, eris.Errorf("shapefile sources must be local: %s", src)
		}
		p, err := fetcher.LocalPath(src)
		if err != nil {
			return nil, err
		}
		log.Debug("reading shapefile", zap.String("path", p))
		return geodata.ReadShapefile(p)
	}

	body, err := l.fetch(ctx, log, src)
	if err != nil {
		return nil, err
	}
	return geodata.DecodeMunicipalities(bytes.NewReader(body))
}

func (l *Loader) ttl() time.Duration {
	if l.TTL <= 0 {
		return DefaultTTL
	}
	return l.TTL
}

// fetch returns the body of src, going through the cache for remote sources.
// Cache errors are logged and fall back to the network.
func (l *Loader) fetch(ctx context.Context, log *zap.Logger, src string) ([]byte, error) {
	if l.Cache == nil || !fetcher.IsRemote(src) {
		rc, err := l.Fetcher.Download(ctx, src)
		if err != nil {
			return nil, err
		}
		defer rc.Close() //nolint:errcheck
		body, err := io.ReadAll(rc)
		return body, eris.Wrap(err, "read body")
	}

	cached, err := l.Cache.GetDataset(ctx, src)
	if err != nil {
		log.Warn("cache lookup failed", zap.String("url", src), zap.Error(err))
		cached = nil
	}
	if cached.Fresh(time.Now()) {
		log.Debug("cache hit", zap.String("url", src), zap.Time("expires_at", cached.ExpiresAt))
		return cached.Body, nil
	}

	etag := ""
	if cached != nil {
		etag = cached.ETag
	}
	rc, newETag, changed, err := l.Fetcher.DownloadIfChanged(ctx, src, etag)
	if err != nil {
		return nil, err
	}
	if !changed {
		if cached == nil {
			return nil, eris.Errorf("not modified without a cached copy: %s", src)
		}
		if err := l.Cache.TouchDataset(ctx, src, l.ttl()); err != nil {
			log.Warn("cache touch failed", zap.String("url", src), zap.Error(err))
		}
		log.Debug("cache revalidated", zap.String("url", src), zap.String("etag", etag))
		return cached.Body, nil
	}

	defer rc.Close() //nolint:errcheck
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}
	if err := l.Cache.PutDataset(ctx, src, newETag, body, l.ttl()); err != nil {
		log.Warn("cache store failed", zap.String("url", src), zap.Error(err))
	}
	return body, nil
}
