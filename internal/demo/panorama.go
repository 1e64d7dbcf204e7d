package demo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iTrooz/ardemo/internal/content"
	"github.com/iTrooz/ardemo/internal/deeplink"
)

var (
	ErrNoImagesAvailable = errors.New("no 360Scenes are available for the specified content item")
	ErrInvalidIndex      = errors.New("an invalid 360Scene index was requested")
)

const (
	locationType  = "CSM-Location"
	locationLimit = 25
)

// PanoramaItem is one 360° scene of a location
type PanoramaItem struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	// HorizontalAngle is the initial camera yaw in radians
	HorizontalAngle float64 `json:"horizontalAngle"`
	FieldOfView     int     `json:"fieldOfView"`
	Path            string  `json:"path,omitempty"`
}

// Location is a place that has panoramas
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Panorama walks through the scenes of one location. Scene images are
// downloaded the first time they become current.
type Panorama struct {
	mu       sync.Mutex
	client   *content.Client
	channel  content.Channel
	params   *deeplink.PanoramaParameters
	location string
	items    []PanoramaItem
	current  int
}

// LoadPanorama reads the location asset and downloads its first scene
func LoadPanorama(ctx context.Context, client *content.Client, params *deeplink.PanoramaParameters) (*Panorama, error) {
	ch := content.Channel{Server: params.ServerURL, Token: params.Token}

	asset, err := client.ReadAsset(ctx, ch, params.AssetID, true)
	if err != nil {
		return nil, fmt.Errorf("reading panorama asset %s: %w", params.AssetID, err)
	}

	items, err := panoramaItems(asset)
	if err != nil {
		return nil, err
	}

	p := &Panorama{
		client:   client,
		channel:  ch,
		params:   params,
		location: asset.Name,
		items:    items,
		current:  -1,
	}
	if _, err := p.Next(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func panoramaItems(asset *content.Asset) ([]PanoramaItem, error) {
	scenes, err := asset.AssetsField("360Scenes")
	if err != nil || len(scenes) == 0 {
		return nil, ErrNoImagesAvailable
	}

	items := make([]PanoramaItem, 0, len(scenes))
	for _, scene := range scenes {
		item := PanoramaItem{ID: scene.ID}
		item.Title, _ = scene.StringField("title")
		degrees, _ := scene.FloatField("horizontalAngle")
		item.HorizontalAngle = degrees * math.Pi / 180
		item.FieldOfView, _ = scene.IntField("fieldOfView")
		items = append(items, item)
	}
	return items, nil
}

// Location returns the location name
func (p *Panorama) Location() string {
	return p.location
}

// Parameters returns the parameters the panorama was opened with
func (p *Panorama) Parameters() *deeplink.PanoramaParameters {
	return p.params
}

// Items returns a copy of the scenes
func (p *Panorama) Items() []PanoramaItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PanoramaItem(nil), p.items...)
}

// Index returns the current scene index, -1 before the first scene
func (p *Panorama) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Next moves to the following scene, wrapping to the first
func (p *Panorama) Next(ctx context.Context) (*PanoramaItem, error) {
	p.mu.Lock()
	p.current = (p.current + 1) % len(p.items)
	p.mu.Unlock()
	return p.Current(ctx)
}

// Previous moves to the preceding scene, wrapping to the last
func (p *Panorama) Previous(ctx context.Context) (*PanoramaItem, error) {
	p.mu.Lock()
	p.current = (p.current + len(p.items) - 1) % len(p.items)
	p.mu.Unlock()
	return p.Current(ctx)
}

// Select moves to the scene at index
func (p *Panorama) Select(ctx context.Context, index int) (*PanoramaItem, error) {
	p.mu.Lock()
	if index < 0 || index >= len(p.items) {
		p.mu.Unlock()
		return nil, ErrInvalidIndex
	}
	p.current = index
	p.mu.Unlock()
	return p.Current(ctx)
}

// Current returns the current scene, downloading its image if needed
func (p *Panorama) Current(ctx context.Context) (*PanoramaItem, error) {
	p.mu.Lock()
	index := p.current
	if index < 0 || index >= len(p.items) {
		p.mu.Unlock()
		return nil, ErrInvalidIndex
	}
	item := p.items[index]
	p.mu.Unlock()

	if item.Path != "" {
		return &item, nil
	}

	result, err := p.client.DownloadNative(ctx, p.channel, item.ID, item.ID)
	if err != nil {
		return nil, fmt.Errorf("downloading scene %s: %w", item.ID, err)
	}
	logrus.WithFields(logrus.Fields{
		"scene":     item.ID,
		"fromCache": result.FromCache,
	}).Debug("Panorama scene ready")

	p.mu.Lock()
	p.items[index].Path = result.Path
	item = p.items[index]
	p.mu.Unlock()
	return &item, nil
}

// MarshalJSON encodes the location, its scenes and the current index
func (p *Panorama) MarshalJSON() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return json.Marshal(struct {
		Parameters *deeplink.PanoramaParameters `json:"parameters"`
		Location   string                       `json:"location"`
		Current    int                          `json:"current"`
		Items      []PanoramaItem               `json:"items"`
	}{
		Parameters: p.params,
		Location:   p.location,
		Current:    p.current,
		Items:      p.items,
	})
}

// Locations lists the locations published on the panorama's channel
func Locations(ctx context.Context, client *content.Client, params *deeplink.PanoramaParameters) ([]Location, error) {
	ch := content.Channel{Server: params.ServerURL, Token: params.Token}

	assets, err := client.ListAssets(ctx, ch, fmt.Sprintf(`(type eq "%s")`, locationType), locationLimit)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}

	locations := make([]Location, 0, len(assets.Items))
	for _, asset := range assets.Items {
		locations = append(locations, Location{ID: asset.ID, Name: asset.Name})
	}
	return locations, nil
}
