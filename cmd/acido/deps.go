package main

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/merabytes/acido/pkg/cloud"
	"github.com/merabytes/acido/pkg/config"
	"github.com/merabytes/acido/pkg/detector"
	"github.com/merabytes/acido/pkg/fleet"
	"github.com/merabytes/acido/pkg/fleetevents"
	"github.com/merabytes/acido/pkg/network"
	"github.com/merabytes/acido/pkg/store"
)

// deps bundles every cloud-facing dependency a CLI command needs, built
// once from the persisted config and ambient Azure credentials.
type deps struct {
	cfg        *config.Config
	cloud      *cloud.Adapter
	blobs      *cloud.BlobStore
	store      *store.Store
	network    *network.Manager
	controller *fleet.Controller
}

func loadDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.SubscriptionID == "" || cfg.ResourceGroup == "" {
		return nil, fmt.Errorf("acido is not configured; run `acido configure` first")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve Azure credential: %w", err)
	}

	cloudAdapter, err := cloud.NewAdapter(cred, cfg.SubscriptionID, cfg.ResourceGroup)
	if err != nil {
		return nil, fmt.Errorf("build cloud adapter: %w", err)
	}

	blobs, err := cloud.NewBlobStore(cred, cfg.StorageAccountURL, cfg.BlobContainer)
	if err != nil {
		return nil, fmt.Errorf("build blob store: %w", err)
	}
	artifacts := store.New(blobs)

	region := cfg.DefaultRegion
	netMgr, err := network.NewManager(cred, cfg.SubscriptionID, cfg.ResourceGroup, region)
	if err != nil {
		return nil, fmt.Errorf("build network stack manager: %w", err)
	}

	det := detector.New(cloudAdapter, detector.DefaultPollInterval)
	events := fleetevents.NewBroker()
	controller := fleet.New(cloudAdapter, artifacts, det, events)

	return &deps{
		cfg:        cfg,
		cloud:      cloudAdapter,
		blobs:      blobs,
		store:      artifacts,
		network:    netMgr,
		controller: controller,
	}, nil
}
