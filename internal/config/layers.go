package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/quake-map-service/internal/domain"
)

// layerCatalog is the LAYERS_FILE document.
type layerCatalog struct {
	Layers []layerEntry `yaml:"layers"`
}

type layerEntry struct {
	Name        string  `yaml:"name"`
	Group       string  `yaml:"group"`
	Title       string  `yaml:"title"`
	Service     string  `yaml:"service"`
	LayerID     int     `yaml:"layer_id"`
	StrokeColor string  `yaml:"stroke_color"`
	StrokeWidth float64 `yaml:"stroke_width"`
	LabelField  string  `yaml:"label_field"`
}

// LoadLayerCatalog reads boundary layer definitions from a YAML file:
//
//	layers:
//	  - name: faults
//	    group: faults
//	    title: Fault Lines
//	    service: Active_Faults
//	    layer_id: 0
//	    stroke_color: orange
//	    stroke_width: 1
func LoadLayerCatalog(path string) ([]domain.LayerDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read LAYERS_FILE: %w", err)
	}
	var catalog layerCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse LAYERS_FILE: %w", err)
	}
	if len(catalog.Layers) == 0 {
		return nil, errors.New("LAYERS_FILE defines no layers")
	}

	seen := make(map[string]bool, len(catalog.Layers))
	defs := make([]domain.LayerDef, 0, len(catalog.Layers))
	for i, e := range catalog.Layers {
		if e.Name == "" || e.Service == "" {
			return nil, fmt.Errorf("LAYERS_FILE layer %d: name and service are required", i)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("LAYERS_FILE layer %q defined twice", e.Name)
		}
		seen[e.Name] = true
		group := e.Group
		if group == "" {
			group = e.Name
		}
		title := e.Title
		if title == "" {
			title = e.Name
		}
		defs = append(defs, domain.LayerDef{
			Name:        e.Name,
			Group:       group,
			Title:       title,
			Service:     e.Service,
			LayerID:     e.LayerID,
			StrokeColor: e.StrokeColor,
			StrokeWidth: e.StrokeWidth,
			LabelField:  e.LabelField,
		})
	}
	return defs, nil
}
