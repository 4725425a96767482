// Package inventory builds the list of services on the host.
package inventory

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/dtg01100/systemctl-manager/internal/errors"
	"github.com/dtg01100/systemctl-manager/internal/logger"
	"github.com/dtg01100/systemctl-manager/internal/models"
	"github.com/dtg01100/systemctl-manager/internal/systemd"
)

// DefaultConcurrency bounds per-service status queries.
const DefaultConcurrency = 8

// Fetcher assembles ServiceRecords from systemctl listings.
type Fetcher struct {
	manager     systemd.ServiceManager
	log         logger.Logger
	concurrency int
}

// NewFetcher returns a fetcher. A concurrency below one uses DefaultConcurrency.
func NewFetcher(manager systemd.ServiceManager, log logger.Logger, concurrency int) *Fetcher {
	if log == nil {
		log = logger.NewNop()
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Fetcher{
		manager:     manager,
		log:         log,
		concurrency: concurrency,
	}
}

// Fetch lists every service with its activation and enabled state, in the
// order systemctl listed them. When the unit list cannot be read it returns
// an empty list and an error for the caller to surface.
func (f *Fetcher) Fetch(ctx context.Context) ([]models.ServiceRecord, error) {
	start := time.Now()

	var (
		units   []systemd.UnitEntry
		enabled []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		units, err = f.manager.ListUnits(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		enabled, err = f.manager.ListEnabled(gctx)
		if err != nil {
			// Degrade to nothing enabled rather than failing the fetch.
			f.log.Warn("failed to list enabled services", logger.Error(err))
			enabled = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		f.log.Error("failed to list services", logger.Error(err))
		if apperrors.IsAppError(err) {
			return []models.ServiceRecord{}, err
		}
		return []models.ServiceRecord{}, apperrors.NewServiceFailedError("list services", "", err)
	}

	enabledSet := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		enabledSet[name] = true
	}

	records := make([]models.ServiceRecord, len(units))
	for i, u := range units {
		records[i] = models.ServiceRecord{
			Name:        u.Name,
			Enabled:     enabledSet[u.Name],
			Description: u.Description,
			Status:      models.StateInactive,
		}
	}

	sg, sctx := errgroup.WithContext(ctx)
	sg.SetLimit(f.concurrency)
	for i := range records {
		i := i
		sg.Go(func() error {
			state, err := f.manager.ActiveState(sctx, records[i].Name)
			if err != nil {
				f.log.Debug("status query failed, treating as inactive",
					logger.Service(records[i].Name), logger.Error(err))
				state = models.StateInactive
			}
			records[i].Status = state
			return nil
		})
	}
	_ = sg.Wait()

	f.log.Debug("fetched services",
		logger.Int("count", len(records)),
		logger.Duration("duration", time.Since(start)),
	)
	return records, nil
}
