package catalog

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/helpdesk-triage/internal/model"
)

// ErrInvalidCatalog is returned for YAML that does not describe a catalog.
var ErrInvalidCatalog = errors.New("invalid service catalog")

type catalogFile struct {
	ServiceCatalog struct {
		Catalog *struct {
			Categories []categoryEntry `yaml:"categories"`
		} `yaml:"catalog"`
	} `yaml:"service_catalog"`
}

type categoryEntry struct {
	Name     string         `yaml:"name"`
	Requests []requestEntry `yaml:"requests"`
}

type requestEntry struct {
	Name string `yaml:"name"`
	SLA  struct {
		Unit  string `yaml:"unit"`
		Value int    `yaml:"value"`
	} `yaml:"sla"`
}

// Parse decodes catalog YAML rooted at service_catalog.catalog.categories.
func Parse(data []byte) (*model.Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	if file.ServiceCatalog.Catalog == nil {
		return nil, fmt.Errorf("%w: missing service_catalog.catalog", ErrInvalidCatalog)
	}

	catalog := &model.Catalog{}
	for i, entry := range file.ServiceCatalog.Catalog.Categories {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: category %d has no name", ErrInvalidCatalog, i)
		}

		category := model.ServiceCategory{Name: name}
		for j, request := range entry.Requests {
			requestName := strings.TrimSpace(request.Name)
			if requestName == "" {
				return nil, fmt.Errorf("%w: request %d in %q has no name", ErrInvalidCatalog, j, name)
			}
			category.RequestTypes = append(category.RequestTypes, model.RequestType{
				Name: requestName,
				SLA: model.SLA{
					Unit:  strings.TrimSpace(request.SLA.Unit),
					Value: request.SLA.Value,
				},
			})
		}
		catalog.Categories = append(catalog.Categories, category)
	}

	return catalog, nil
}
