package demo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iTrooz/ardemo/internal/content"
	"github.com/iTrooz/ardemo/internal/deeplink"
	"github.com/iTrooz/ardemo/internal/rules"
	"github.com/iTrooz/ardemo/internal/urlcache"
)

// ErrNoPanorama is returned by panorama navigation before any panorama was opened
var ErrNoPanorama = errors.New("no panorama is open")

// Result is the prepared payload of an opened deep link
type Result struct {
	Demo      deeplink.Demo `json:"demo"`
	Mug       *Mug          `json:"mug,omitempty"`
	Panorama  *Panorama     `json:"panorama,omitempty"`
	Locations []Location    `json:"locations,omitempty"`
}

// Router dispatches deep links to the matching demo
type Router struct {
	client *content.Client
	recent *urlcache.Lists
	policy *rules.Policy

	// last opened panorama, target of navigation
	mu        sync.Mutex
	panorama  *Panorama
	locations []Location
}

// NewRouter creates a router. A nil policy allows every content server.
func NewRouter(client *content.Client, recent *urlcache.Lists, policy *rules.Policy) *Router {
	return &Router{
		client: client,
		recent: recent,
		policy: policy,
	}
}

// Recent returns the recent-link list kept for demo
func (r *Router) Recent(demo deeplink.Demo) (*urlcache.List, bool) {
	return r.recent.Get(string(demo))
}

// Open parses raw and runs its demo. The link is remembered in the demo's
// recent list even when its parameters turn out to be invalid.
func (r *Router) Open(ctx context.Context, raw string) (*Result, error) {
	link, err := deeplink.Parse(raw)
	if err != nil {
		return nil, err
	}
	if link.Demo == deeplink.DemoUnknown {
		return nil, fmt.Errorf("%w: %s", deeplink.ErrUnknownDemo, link.URL.Host)
	}

	if list, ok := r.Recent(link.Demo); ok {
		list.Store(link.URL)
	}

	logrus.WithFields(logrus.Fields{"demo": link.Demo}).Info("Opening deep link")

	switch link.Demo {
	case deeplink.DemoMug:
		return r.openMug(ctx, link)
	case deeplink.DemoPanorama:
		return r.openPanorama(ctx, link)
	default:
		return nil, deeplink.ErrUnknownDemo
	}
}

func (r *Router) openMug(ctx context.Context, link *deeplink.Link) (*Result, error) {
	params, err := link.Mug()
	if err != nil {
		return nil, err
	}
	if err := r.policy.Check(params.ServerURL); err != nil {
		return nil, err
	}

	mug, err := LoadMug(ctx, r.client, params)
	if err != nil {
		return nil, err
	}
	return &Result{Demo: deeplink.DemoMug, Mug: mug}, nil
}

func (r *Router) openPanorama(ctx context.Context, link *deeplink.Link) (*Result, error) {
	params, err := link.Panorama()
	if err != nil {
		return nil, err
	}
	if err := r.policy.Check(params.ServerURL); err != nil {
		return nil, err
	}

	var (
		panorama  *Panorama
		locations []Location
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		panorama, err = LoadPanorama(gctx, r.client, params)
		return err
	})
	g.Go(func() error {
		var err error
		locations, err = Locations(gctx, r.client, params)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.panorama, r.locations = panorama, locations
	r.mu.Unlock()

	return &Result{Demo: deeplink.DemoPanorama, Panorama: panorama, Locations: locations}, nil
}

// Panorama returns the last opened panorama and its locations
func (r *Router) Panorama() (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panorama == nil {
		return nil, ErrNoPanorama
	}
	return &Result{Demo: deeplink.DemoPanorama, Panorama: r.panorama, Locations: r.locations}, nil
}

// SwitchLocation reopens the current panorama on another location asset of
// the same channel. The location list and the recent links are unchanged.
func (r *Router) SwitchLocation(ctx context.Context, assetID string) (*Result, error) {
	r.mu.Lock()
	current, locations := r.panorama, r.locations
	r.mu.Unlock()
	if current == nil {
		return nil, ErrNoPanorama
	}
	if assetID == "" {
		return nil, deeplink.ErrAssetIDParameterMissing
	}

	params := current.Parameters().WithAsset(assetID)
	logrus.WithFields(logrus.Fields{"from": current.Parameters().AssetID, "to": assetID}).Info("Switching panorama location")

	panorama, err := LoadPanorama(ctx, r.client, params)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.panorama = panorama
	r.mu.Unlock()

	return &Result{Demo: deeplink.DemoPanorama, Panorama: panorama, Locations: locations}, nil
}

// ClosePanorama forgets the last opened panorama
func (r *Router) ClosePanorama() {
	r.mu.Lock()
	r.panorama, r.locations = nil, nil
	r.mu.Unlock()
}
