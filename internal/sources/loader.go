package sources

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/milesbot/milesbot/internal/logger"
)

// entry is the object form of a registry item. Plain string entries are
// also accepted; see loadFile.
type entry struct {
	URL  string `mapstructure:"url"`
	Name string `mapstructure:"name"`
}

// loadFile reads the registry YAML. The document may be a list of URL
// strings or a list of objects with at least a `url` field; the two forms
// may be mixed. Malformed entries are skipped with a log, never fatal.
func loadFile(path string, log logger.Interface) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var items []any
	if unmarshalErr := yaml.Unmarshal(raw, &items); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", unmarshalErr)
	}

	urls := make([]string, 0, len(items))
	for i, item := range items {
		u, ok := decodeEntry(item)
		if !ok || !validURL(u) {
			log.Warn("Skipping malformed source entry",
				"file", path,
				"index", i)
			continue
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// decodeEntry extracts the URL from either entry form.
func decodeEntry(item any) (string, bool) {
	switch v := item.(type) {
	case string:
		return v, true
	default:
		var e entry
		if err := mapstructure.Decode(item, &e); err != nil {
			return "", false
		}
		return e.URL, e.URL != ""
	}
}
