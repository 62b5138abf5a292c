package config

import (
	"encoding/json"
	"os"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// LoadSiteData decodes the JSON site data file. Key case is preserved. A
// missing file yields empty data.
func (c *Config) LoadSiteData() (map[string]any, error) {
	path := c.Path(c.SiteDataFile)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, errors.FileSystemError("read site data").WithFile(c.SiteDataFile).WithCause(err).Build()
	}

	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.NewError(errors.CategoryConfig, "decode site data").
			WithFile(c.SiteDataFile).
			WithCause(err).
			Build()
	}
	return data, nil
}
