package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"site-cms/pkg/utils"
)

// Site holds the presentation settings shared by every rendered page.
type Site struct {
	Name        string  `mapstructure:"name"`
	Description string  `mapstructure:"description"`
	OGImage     string  `mapstructure:"og_image"`
	Twitter     Twitter `mapstructure:"twitter"`
	Theme       Theme   `mapstructure:"theme"`
}

type Twitter struct {
	Card    string `mapstructure:"card"`
	Creator string `mapstructure:"creator"`
}

type Theme struct {
	Default string `mapstructure:"default"`
}

func defaultSite() map[string]interface{} {
	return map[string]interface{}{
		"name":        "Payload Website Template",
		"description": "An open-source website built with Payload and Next.js.",
		"og_image":    "/website-template-OG.webp",
		"twitter": map[string]interface{}{
			"card":    "summary_large_image",
			"creator": "@payloadcms",
		},
		"theme": map[string]interface{}{
			"default": "light",
		},
	}
}

// LoadSite reads the optional site.yml and merges it over the defaults.
// A missing file yields the defaults.
func LoadSite(path string) (*Site, error) {
	merged := defaultSite()

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read site config: %w", err)
	default:
		var overrides map[string]interface{}
		if err := yaml.Unmarshal(content, &overrides); err != nil {
			return nil, fmt.Errorf("parse site config: %w", err)
		}
		merged = utils.DeepMerge(merged, overrides)
	}

	var site Site
	if err := mapstructure.Decode(merged, &site); err != nil {
		return nil, fmt.Errorf("decode site config: %w", err)
	}
	return &site, nil
}
