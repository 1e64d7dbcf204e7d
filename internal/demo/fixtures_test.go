package demo

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iTrooz/ardemo/internal/cache"
	"github.com/iTrooz/ardemo/internal/content"
	"github.com/iTrooz/ardemo/internal/content/contenttest"
	"github.com/iTrooz/ardemo/internal/deeplink"
)

const token = "123"

func mugModel(fields map[string]any) map[string]any {
	return map[string]any{"id": "MODEL1", "name": "mug-model", "fields": fields}
}

// fixture_upstream serves a mug and a panorama location
func fixture_upstream(t *testing.T) *contenttest.Server {
	t.Helper()
	upstream := contenttest.New(token)
	t.Cleanup(upstream.Close)

	upstream.AddItem(map[string]any{
		"id":   "CORE456",
		"name": "Coffee Mug",
		"type": "Mug",
		"fields": map[string]any{
			"price": 12,
			"model": mugModel(map[string]any{
				"primarymeshname": "Mug",
				"imagemeshnames":  []string{"Decal"},
				"textmeshnames":   []string{"Text"},
				"usdz":            map[string]any{"id": "USDZ1", "name": "mug.usdz"},
			}),
		},
	})
	upstream.SetNative("USDZ1", "mug.usdz", "usdz-bytes", `"u1"`)
	upstream.SetNative("CONT789", "decal.png", "png-bytes", `"d1"`)

	upstream.AddItem(map[string]any{
		"id":   "LOC1",
		"name": "Lisbon",
		"type": "CSM-Location",
		"fields": map[string]any{
			"360Scenes": []any{
				map[string]any{"id": "S1", "fields": map[string]any{"title": "Hall", "horizontalAngle": 90, "fieldOfView": 60}},
				map[string]any{"id": "S2", "fields": map[string]any{"title": "Garden"}},
				map[string]any{"id": "S3", "fields": map[string]any{}},
			},
		},
	})
	upstream.AddItem(map[string]any{"id": "LOC2", "name": "Porto", "type": "CSM-Location"})
	upstream.AddItem(map[string]any{
		"id":   "ARCHIVE1",
		"name": "Lisbon 2019",
		"type": "CSM-Archive",
		"fields": map[string]any{
			"360Scenes": []any{map[string]any{"id": "S3", "fields": map[string]any{"title": "Old hall"}}},
		},
	})
	for _, id := range []string{"S1", "S2", "S3"} {
		upstream.SetNative(id, id+".jpg", "jpg-"+id, `"`+id+`"`)
	}

	return upstream
}

func fixture_client(t *testing.T) (*content.Client, *cache.FileCache) {
	t.Helper()
	folder := t.TempDir()
	fc, err := cache.NewFile(folder)
	require.NoError(t, err)
	client, err := content.New(fc, content.Options{DownloadDir: filepath.Join(folder, "downloads")})
	require.NoError(t, err)
	return client, fc
}

func mugParams(upstream *contenttest.Server, assetID string) *deeplink.MugParameters {
	return &deeplink.MugParameters{
		ServerURL: upstream.BaseURL(),
		Token:     token,
		AssetID:   assetID,
		ImageID:   "CONT789",
		MugColor:  deeplink.Color(0x123123),
	}
}

func panoramaParams(upstream *contenttest.Server, assetID string) *deeplink.PanoramaParameters {
	return &deeplink.PanoramaParameters{
		ServerURL: upstream.BaseURL(),
		Token:     token,
		AssetID:   assetID,
	}
}
