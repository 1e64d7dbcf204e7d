// Package demo runs the content pipelines behind each demo experience.
package demo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iTrooz/ardemo/internal/content"
	"github.com/iTrooz/ardemo/internal/deeplink"
)

var (
	ErrModelMissing       = errors.New(`custom field "model" is missing from the content item`)
	ErrPrimaryMeshMissing = errors.New(`custom field "primarymeshname" is missing from the asset`)
	ErrImageMeshesMissing = errors.New(`custom field "imagemeshnames" is missing from the asset`)
)

// MugMaterials is what a renderer needs to customize the mug model
type MugMaterials struct {
	RenditionPath string   `json:"renditionPath"`
	DecalPath     string   `json:"decalPath"`
	MainMesh      string   `json:"mainMesh"`
	TextMeshes    []string `json:"textMeshes"`
	ImageMeshes   []string `json:"imageMeshes"`
	ProductName   string   `json:"productName,omitempty"`
	Price         string   `json:"price,omitempty"`
}

// Mug is a prepared mug customization
type Mug struct {
	Parameters *deeplink.MugParameters `json:"parameters"`
	Materials  *MugMaterials           `json:"materials"`
}

// LoadMug reads the mug asset while downloading the decal, then downloads
// the model rendition the asset points to
func LoadMug(ctx context.Context, client *content.Client, params *deeplink.MugParameters) (*Mug, error) {
	ch := content.Channel{Server: params.ServerURL, Token: params.Token}

	var (
		asset     *content.Asset
		rendition *content.DownloadResult
		decal     *content.DownloadResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		asset, err = client.ReadAsset(gctx, ch, params.AssetID, false)
		if err != nil {
			return fmt.Errorf("reading mug asset %s: %w", params.AssetID, err)
		}

		usdz, err := usdzAsset(asset)
		if err != nil {
			return err
		}
		rendition, err = client.DownloadNative(gctx, ch, usdz.ID, usdz.ID)
		if err != nil {
			return fmt.Errorf("downloading rendition %s: %w", usdz.ID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		decal, err = client.DownloadNative(gctx, ch, params.ImageID, params.ImageID)
		if err != nil {
			return fmt.Errorf("downloading decal %s: %w", params.ImageID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	materials, err := mugMaterials(asset, rendition, decal)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"asset":          params.AssetID,
		"rendition":      rendition.Path,
		"renditionCache": rendition.FromCache,
		"decalCache":     decal.FromCache,
	}).Info("Mug materials ready")

	return &Mug{Parameters: params, Materials: materials}, nil
}

// usdzAsset finds the downloadable model at fields.model.fields.usdz
func usdzAsset(asset *content.Asset) (*content.Asset, error) {
	model, err := asset.AssetField("model")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelMissing, err)
	}
	usdz, err := model.AssetField("usdz")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelMissing, err)
	}
	return usdz, nil
}

func mugMaterials(asset *content.Asset, rendition, decal *content.DownloadResult) (*MugMaterials, error) {
	model, err := asset.AssetField("model")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelMissing, err)
	}

	mainMesh, err := model.StringField("primarymeshname")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrimaryMeshMissing, err)
	}

	imageMeshes, err := model.StringsField("imagemeshnames")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageMeshesMissing, err)
	}
	if len(imageMeshes) == 0 {
		return nil, ErrImageMeshesMissing
	}

	textMeshes, err := model.StringsField("textmeshnames")
	if err != nil {
		textMeshes = []string{}
	}

	materials := &MugMaterials{
		RenditionPath: rendition.Path,
		DecalPath:     decal.Path,
		MainMesh:      mainMesh,
		TextMeshes:    textMeshes,
		ImageMeshes:   imageMeshes,
		ProductName:   asset.Name,
	}
	if price, err := asset.FloatField("price"); err == nil {
		materials.Price = formatPrice(price)
	}
	return materials, nil
}

// formatPrice always keeps a fractional part: 12 -> "12.0", 12.5 -> "12.5"
func formatPrice(price float64) string {
	s := strconv.FormatFloat(price, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
