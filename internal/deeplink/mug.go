package deeplink

import (
	"net/url"
	"strings"
)

// MugParameters describe a mug customization
type MugParameters struct {
	ServerURL *url.URL `json:"-"`
	Token     string   `json:"-"`
	AssetID   string   `json:"assetID"`
	ImageID   string   `json:"imageID"`
	MugColor  Color    `json:"mugColor"`
	// Hex strings as received, kept for rebuilding the link
	MugColorHex  string  `json:"-"`
	Text         *string `json:"customText,omitempty"`
	TextColor    *Color  `json:"textColor,omitempty"`
	TextColorHex string  `json:"-"`
}

// Mug validates the link's query as a mug customization
func (l *Link) Mug() (*MugParameters, error) {
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
	imageID, err := required(values, "imageID", ErrImageIDParameterMissing)
	if err != nil {
		return nil, err
	}
	mugColorHex, err := required(values, "mugColor", ErrMugColorParameterMissing)
	if err != nil {
		return nil, err
	}
	mugColor, err := ParseColor(mugColorHex)
	if err != nil {
		return nil, err
	}

	params := &MugParameters{
		ServerURL:   server,
		Token:       token,
		AssetID:     assetID,
		ImageID:     imageID,
		MugColor:    mugColor,
		MugColorHex: mugColorHex,
	}

	if text := values.Get("customText"); text != "" {
		if decoded, err := url.PathUnescape(text); err == nil {
			text = decoded
		}
		params.Text = &text
	}

	if hex := values.Get("textColor"); hex != "" {
		textColor, err := ParseColor(hex)
		if err != nil {
			return nil, err
		}
		params.TextColor = &textColor
		params.TextColorHex = hex
	}

	return params, nil
}

// MugForm holds mug parameters as typed by a user
type MugForm struct {
	ServerURL string `json:"url"`
	Token     string `json:"token"`
	AssetID   string `json:"assetID"`
	ImageID   string `json:"imageID"`
	MugColor  string `json:"mugColor"`
	Text      string `json:"customText"`
	TextColor string `json:"textColor"`
}

// Parameters trims and validates the form
func (f MugForm) Parameters() (*MugParameters, error) {
	serverRaw := strings.TrimSpace(f.ServerURL)
	if serverRaw == "" {
		return nil, ErrURLParameterMissing
	}
	server, err := resolveServerURL(serverRaw)
	if err != nil {
		return nil, err
	}

	params := &MugParameters{
		ServerURL: server,
		Token:     strings.TrimSpace(f.Token),
		AssetID:   strings.TrimSpace(f.AssetID),
		ImageID:   strings.TrimSpace(f.ImageID),
	}
	if params.Token == "" {
		return nil, ErrTokenParameterMissing
	}
	if params.AssetID == "" {
		return nil, ErrAssetIDParameterMissing
	}
	if params.ImageID == "" {
		return nil, ErrImageIDParameterMissing
	}

	params.MugColorHex = strings.TrimSpace(f.MugColor)
	if params.MugColorHex == "" {
		return nil, ErrMugColorParameterMissing
	}
	if params.MugColor, err = ParseColor(params.MugColorHex); err != nil {
		return nil, err
	}

	if text := strings.TrimSpace(f.Text); text != "" {
		params.Text = &text
	}

	if hex := strings.TrimSpace(f.TextColor); hex != "" {
		textColor, err := ParseColor(hex)
		if err != nil {
			return nil, err
		}
		params.TextColor = &textColor
		params.TextColorHex = hex
	}

	return params, nil
}

// DeepLink builds the link that opens these parameters
func (p *MugParameters) DeepLink(scheme string) *url.URL {
	var b builder
	b.add("url", p.ServerURL.String())
	b.add("token", p.Token)
	b.add("assetID", p.AssetID)
	b.add("imageID", p.ImageID)
	b.add("mugColor", p.MugColorHex)
	if p.Text != nil {
		b.add("customText", *p.Text)
	}
	b.add("textColor", p.TextColorHex)
	return b.url(scheme, DemoMug)
}
