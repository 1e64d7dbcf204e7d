package demo

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iTrooz/ardemo/internal/content"
)

func TestLoadMug(t *testing.T) {
	upstream := fixture_upstream(t)
	client, fc := fixture_client(t)

	mug, err := LoadMug(context.Background(), client, mugParams(upstream, "CORE456"))
	require.NoError(t, err)

	m := mug.Materials
	assert.Equal(t, "Mug", m.MainMesh)
	assert.Equal(t, []string{"Decal"}, m.ImageMeshes)
	assert.Equal(t, []string{"Text"}, m.TextMeshes)
	assert.Equal(t, "Coffee Mug", m.ProductName)
	assert.Equal(t, "12.0", m.Price)

	data, err := os.ReadFile(m.RenditionPath)
	require.NoError(t, err)
	assert.Equal(t, "usdz-bytes", string(data))
	data, err = os.ReadFile(m.DecalPath)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, 2, fc.Len())

	again, err := LoadMug(context.Background(), client, mugParams(upstream, "CORE456"))
	require.NoError(t, err)
	assert.Equal(t, m.RenditionPath, again.Materials.RenditionPath)
	assert.Equal(t, 1, upstream.Downloads("USDZ1"))
	assert.Equal(t, 1, upstream.NotModified("USDZ1"))
	assert.Equal(t, 1, upstream.NotModified("CONT789"))
}

func TestLoadMugAssetShapeErrors(t *testing.T) {
	usdz := map[string]any{"id": "USDZ1", "name": "mug.usdz"}

	tests := []struct {
		name   string
		fields map[string]any
		want   error
	}{
		{
			name:   "no model",
			fields: map[string]any{},
			want:   ErrModelMissing,
		},
		{
			name:   "model without usdz",
			fields: map[string]any{"model": mugModel(map[string]any{"primarymeshname": "Mug"})},
			want:   ErrModelMissing,
		},
		{
			name:   "no primary mesh",
			fields: map[string]any{"model": mugModel(map[string]any{"imagemeshnames": []string{"Decal"}, "usdz": usdz})},
			want:   ErrPrimaryMeshMissing,
		},
		{
			name:   "no image meshes",
			fields: map[string]any{"model": mugModel(map[string]any{"primarymeshname": "Mug", "usdz": usdz})},
			want:   ErrImageMeshesMissing,
		},
		{
			name:   "empty image meshes",
			fields: map[string]any{"model": mugModel(map[string]any{"primarymeshname": "Mug", "imagemeshnames": []string{}, "usdz": usdz})},
			want:   ErrImageMeshesMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := fixture_upstream(t)
			upstream.AddItem(map[string]any{"id": "BROKEN", "name": "Broken", "type": "Mug", "fields": tt.fields})
			client, _ := fixture_client(t)

			_, err := LoadMug(context.Background(), client, mugParams(upstream, "BROKEN"))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadMugOptionalFields(t *testing.T) {
	upstream := fixture_upstream(t)
	upstream.AddItem(map[string]any{
		"id":   "PLAIN",
		"name": "Plain Mug",
		"type": "Mug",
		"fields": map[string]any{
			"model": mugModel(map[string]any{
				"primarymeshname": "Mug",
				"imagemeshnames":  []string{"Decal", "Back"},
				"usdz":            map[string]any{"id": "USDZ1"},
			}),
		},
	})
	client, _ := fixture_client(t)

	mug, err := LoadMug(context.Background(), client, mugParams(upstream, "PLAIN"))
	require.NoError(t, err)
	assert.Empty(t, mug.Materials.TextMeshes)
	assert.NotNil(t, mug.Materials.TextMeshes)
	assert.Empty(t, mug.Materials.Price)
	assert.Equal(t, []string{"Decal", "Back"}, mug.Materials.ImageMeshes)
}

func TestLoadMugUpstreamErrors(t *testing.T) {
	upstream := fixture_upstream(t)
	client, _ := fixture_client(t)

	_, err := LoadMug(context.Background(), client, mugParams(upstream, "MISSING"))
	var statusErr *content.StatusError
	assert.ErrorAs(t, err, &statusErr)

	params := mugParams(upstream, "CORE456")
	params.ImageID = "NOIMAGE"
	_, err = LoadMug(context.Background(), client, params)
	assert.ErrorAs(t, err, &statusErr)
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		price float64
		want  string
	}{
		{price: 12, want: "12.0"},
		{price: 12.5, want: "12.5"},
		{price: 0.99, want: "0.99"},
		{price: 0, want: "0.0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatPrice(tt.price))
	}
}
