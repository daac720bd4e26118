// Package registry turns the brand roster into live provider adapters. A
// brand with a malformed credential block keeps running with that provider
// absent; startup only fails when the roster itself is unusable.
package registry

import (
	"context"

	"github.com/pulseboardhq/pulseboard-backend/internal/providers"
	"github.com/pulseboardhq/pulseboard-backend/internal/providers/ga"
	"github.com/pulseboardhq/pulseboard-backend/internal/providers/meta"
	"github.com/pulseboardhq/pulseboard-backend/internal/providers/sendgridlist"
	"github.com/pulseboardhq/pulseboard-backend/internal/providers/square"
	"github.com/pulseboardhq/pulseboard-backend/pkg/config"
	"github.com/pulseboardhq/pulseboard-backend/pkg/errors"
	"github.com/pulseboardhq/pulseboard-backend/pkg/logger"
)

// Build constructs one providers.Brand per roster entry, preserving roster
// order. Absent credential blocks leave the matching adapter nil; invalid
// blocks are logged and treated the same way.
func Build(ctx context.Context, configs []config.BrandConfig, logg *logger.Logger) ([]*providers.Brand, error) {
	if len(configs) == 0 {
		return nil, errors.New(errors.CodeValidation, "brand roster is empty")
	}

	brands := make([]*providers.Brand, 0, len(configs))
	for _, cfg := range configs {
		brand := &providers.Brand{
			Key:      cfg.Key,
			Name:     cfg.Name,
			Currency: cfg.Currency,
		}
		brandCtx := logg.WithBrand(ctx, cfg.Key)

		if cfg.Square != nil {
			adapter, err := square.New(*cfg.Square)
			if err != nil {
				logg.Warn(logg.WithProvider(brandCtx, providers.ClassOrders), "square credentials rejected, provider disabled: "+err.Error())
			} else {
				brand.Orders = adapter
			}
		}
		if cfg.GA != nil {
			adapter, err := ga.New(ctx, *cfg.GA)
			if err != nil {
				logg.Warn(logg.WithProvider(brandCtx, providers.ClassTraffic), "ga credentials rejected, provider disabled: "+err.Error())
			} else {
				brand.Traffic = adapter
			}
		}
		if cfg.Meta != nil {
			adapter, err := meta.New(*cfg.Meta)
			if err != nil {
				logg.Warn(logg.WithProvider(brandCtx, providers.ClassAds), "meta credentials rejected, provider disabled: "+err.Error())
			} else {
				brand.Ads = adapter
			}
		}
		if cfg.Sendgrid != nil {
			adapter, err := sendgridlist.New(*cfg.Sendgrid)
			if err != nil {
				logg.Warn(logg.WithProvider(brandCtx, providers.ClassEmail), "sendgrid credentials rejected, provider disabled: "+err.Error())
			} else {
				brand.Email = adapter
			}
		}

		logg.Info(logg.WithFields(brandCtx, map[string]any{
			"orders":  brand.Orders != nil,
			"traffic": brand.Traffic != nil,
			"ads":     brand.Ads != nil,
			"email":   brand.Email != nil,
		}), "brand registered")
		brands = append(brands, brand)
	}
	return brands, nil
}
