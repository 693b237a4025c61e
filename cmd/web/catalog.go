package main

import (
	"fmt"
	"os"

	"smiledent/internal/models"

	"gopkg.in/yaml.v2"
)

// loadCatalog reads the optional services/dentists override. An empty path keeps
// the built-in lists, as does an empty section in the file.
func loadCatalog(path string) (models.Catalog, error) {
	catalog := models.DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Catalog{}, fmt.Errorf("read catalog: %w", err)
	}

	var override models.Catalog
	if err := yaml.Unmarshal(data, &override); err != nil {
		return models.Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}

	if len(override.Services) > 0 {
		if err := validateEntries("services", override.Services); err != nil {
			return models.Catalog{}, err
		}
		catalog.Services = override.Services
	}
	if len(override.Dentists) > 0 {
		if err := validateEntries("dentists", override.Dentists); err != nil {
			return models.Catalog{}, err
		}
		catalog.Dentists = override.Dentists
	}
	return catalog, nil
}

func validateEntries(section string, entries []models.CatalogEntry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.ID == "" || e.Name == "" {
			return fmt.Errorf("catalog %s[%d]: id and name are required", section, i)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("catalog %s: duplicate id %q", section, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}
