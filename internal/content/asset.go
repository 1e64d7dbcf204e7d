package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrFieldMissing = errors.New("custom field is missing")
	ErrFieldType    = errors.New("custom field has an unexpected type")
)

// Asset is a content item or digital asset returned by the delivery API
type Asset struct {
	ID     string                     `json:"id"`
	Name   string                     `json:"name"`
	Type   string                     `json:"type"`
	Fields map[string]json.RawMessage `json:"fields,omitempty"`
}

// Assets is one page of a listing
type Assets struct {
	Items   []Asset `json:"items"`
	HasMore bool    `json:"hasMore"`
	Count   int     `json:"count"`
}

// Field decodes the custom field name into v
func (a *Asset) Field(name string, v any) error {
	raw, ok := a.Fields[name]
	if !ok || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fmt.Errorf("%w: %q", ErrFieldMissing, name)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrFieldType, name, err)
	}
	return nil
}

func (a *Asset) StringField(name string) (string, error) {
	var s string
	err := a.Field(name, &s)
	return s, err
}

func (a *Asset) StringsField(name string) ([]string, error) {
	var s []string
	err := a.Field(name, &s)
	return s, err
}

func (a *Asset) FloatField(name string) (float64, error) {
	var f float64
	err := a.Field(name, &f)
	return f, err
}

func (a *Asset) IntField(name string) (int, error) {
	var i int
	err := a.Field(name, &i)
	return i, err
}

// AssetField decodes a field referencing another asset
func (a *Asset) AssetField(name string) (*Asset, error) {
	var nested Asset
	if err := a.Field(name, &nested); err != nil {
		return nil, err
	}
	if nested.ID == "" {
		return nil, fmt.Errorf("%w: %q has no id", ErrFieldType, name)
	}
	return &nested, nil
}

// AssetsField decodes a field referencing a list of assets
func (a *Asset) AssetsField(name string) ([]Asset, error) {
	var nested []Asset
	err := a.Field(name, &nested)
	return nested, err
}
