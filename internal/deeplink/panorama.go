package deeplink

import (
	"net/url"
	"strings"
)

// PanoramaParameters identify the location whose 360° scenes are shown
type PanoramaParameters struct {
	ServerURL *url.URL `json:"-"`
	Token     string   `json:"-"`
	AssetID   string   `json:"assetID"`
}

// Panorama validates the link's query as a panorama request
func (l *Link) Panorama() (*PanoramaParameters, error) {
	values, err := l.query()
	if err != nil {
		return nil, err
	}

	server, err := serverURL(values)
	if err != nil {
		return nil, err
	}
	token, err := required(values, "token", ErrTokenParameterMissing)
	if err != nil {
		return nil, err
	}
	assetID, err := required(values, "assetID", ErrAssetIDParameterMissing)
	if err != nil {
		return nil, err
	}

	return &PanoramaParameters{
		ServerURL: server,
		Token:     token,
		AssetID:   assetID,
	}, nil
}

// PanoramaForm holds panorama parameters as typed by a user
type PanoramaForm struct {
	ServerURL string `json:"url"`
	Token     string `json:"token"`
	AssetID   string `json:"assetID"`
}

// Parameters trims and validates the form
func (f PanoramaForm) Parameters() (*PanoramaParameters, error) {
	serverRaw := strings.TrimSpace(f.ServerURL)
	if serverRaw == "" {
		return nil, ErrURLParameterMissing
	}
	server, err := resolveServerURL(serverRaw)
	if err != nil {
		return nil, err
	}

	params := &PanoramaParameters{
		ServerURL: server,
		Token:     strings.TrimSpace(f.Token),
		AssetID:   strings.TrimSpace(f.AssetID),
	}
	if params.Token == "" {
		return nil, ErrTokenParameterMissing
	}
	if params.AssetID == "" {
		return nil, ErrAssetIDParameterMissing
	}
	return params, nil
}

// WithAsset returns a copy targeting another location
func (p *PanoramaParameters) WithAsset(assetID string) *PanoramaParameters {
	copied := *p
	copied.AssetID = assetID
	return &copied
}

// DeepLink builds the link that opens these parameters
func (p *PanoramaParameters) DeepLink(scheme string) *url.URL {
	var b builder
	b.add("url", p.ServerURL.String())
	b.add("token", p.Token)
	b.add("assetID", p.AssetID)
	return b.url(scheme, DemoPanorama)
}
