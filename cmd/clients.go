package main

import (
	"time"

	"github.com/harbor-supply/costsync/pkg/finale"
	"github.com/harbor-supply/costsync/pkg/shopify"
)

// initClients validates the config for the given command mode and builds
// the Shopify and Finale clients from it.
func initClients(mode string) (shopify.Client, finale.Client, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, nil, err
	}

	shopOpts := []shopify.Option{
		shopify.WithAPIVersion(cfg.Shopify.APIVersion),
		shopify.WithPageSize(cfg.Shopify.PageSize),
		shopify.WithRateLimit(cfg.Shopify.RateLimit),
		shopify.WithTimeout(time.Duration(cfg.Shopify.TimeoutSecs) * time.Second),
	}
	if cfg.Shopify.BaseURL != "" {
		shopOpts = append(shopOpts, shopify.WithBaseURL(cfg.Shopify.BaseURL))
	}
	shopClient := shopify.NewClient(cfg.Shopify.Shop, cfg.Shopify.AccessToken, shopOpts...)

	finClient := finale.NewClient(cfg.Finale.Account, cfg.Finale.APIKey, cfg.Finale.APISecret,
		finale.WithBaseURL(cfg.Finale.BaseURL),
		finale.WithRateLimit(cfg.Finale.RateLimit),
		finale.WithTimeout(time.Duration(cfg.Finale.TimeoutSecs)*time.Second),
	)

	return shopClient, finClient, nil
}
