package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// BrandsFile is the on-disk shape of the brand roster. Every provider block is
// optional; an absent block means that brand has no such integration and the
// dashboard shows its metrics as not connected.
type BrandsFile struct {
	Brands []BrandConfig `yaml:"brands"`
}

type BrandConfig struct {
	Key      string `yaml:"key"`
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`

	Square   *SquareCredentials   `yaml:"square"`
	GA       *GACredentials       `yaml:"ga"`
	Meta     *MetaCredentials     `yaml:"meta"`
	Sendgrid *SendgridCredentials `yaml:"sendgrid"`
}

type SquareCredentials struct {
	AccessToken string   `yaml:"access_token"`
	Environment string   `yaml:"environment"`
	LocationIDs []string `yaml:"location_ids"`
}

type GACredentials struct {
	PropertyID      string `yaml:"property_id"`
	CredentialsJSON string `yaml:"credentials_json"`
}

type MetaCredentials struct {
	AccessToken string `yaml:"access_token"`
	AccountID   string `yaml:"account_id"`
	// BaseURL overrides the Graph API root, version segment included.
	// Empty means the adapter's default.
	BaseURL string `yaml:"base_url"`
}

type SendgridCredentials struct {
	APIKey string `yaml:"api_key"`
}

// LoadBrands reads and validates the brand roster file.
func LoadBrands(path string) ([]BrandConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading brands file: %w", err)
	}
	return ParseBrands(raw)
}

// ParseBrands decodes the YAML roster and normalizes every entry.
func ParseBrands(raw []byte) ([]BrandConfig, error) {
	var file BrandsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing brands file: %w", err)
	}
	if len(file.Brands) == 0 {
		return nil, fmt.Errorf("brands file declares no brands")
	}

	seen := map[string]bool{}
	for i := range file.Brands {
		brand := &file.Brands[i]
		brand.Key = strings.ToLower(strings.TrimSpace(brand.Key))
		if brand.Key == "" {
			return nil, fmt.Errorf("brand %d: key is required", i)
		}
		if brand.Key == "overview" {
			return nil, fmt.Errorf("brand key %q is reserved for the rollup tab", brand.Key)
		}
		if seen[brand.Key] {
			return nil, fmt.Errorf("duplicate brand key %q", brand.Key)
		}
		seen[brand.Key] = true
		if strings.TrimSpace(brand.Name) == "" {
			brand.Name = brand.Key
		}
		brand.Currency = strings.ToUpper(strings.TrimSpace(brand.Currency))
		if brand.Currency == "" {
			brand.Currency = "USD"
		}
	}
	return file.Brands, nil
}
