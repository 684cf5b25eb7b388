package shared

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"ski_resort_finder/internal/domain"
)

// LoadGeography reads region and keyword tables from a YAML file. Sections
// missing from the file keep the built-in values.
//
//	regions:
//	  - key: colorado
//	    triggers: [colorado, co, vail]
//	    seeds:
//	      - {name: Vail, lat: 39.6403, lng: -106.3742}
//	include_keywords: [ski, resort]
func LoadGeography(path string) (domain.Geography, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return domain.Geography{}, fmt.Errorf("load geography %s: %w", path, err)
	}
	var g domain.Geography
	if err := k.Unmarshal("", &g); err != nil {
		return domain.Geography{}, fmt.Errorf("decode geography %s: %w", path, err)
	}
	g = MergeGeography(g, domain.DefaultGeography())
	if err := ValidateGeography(g); err != nil {
		return domain.Geography{}, fmt.Errorf("geography %s: %w", path, err)
	}
	return g, nil
}

// MergeGeography fills empty sections of g from def and normalizes keys.
func MergeGeography(g, def domain.Geography) domain.Geography {
	if len(g.Regions) == 0 {
		g.Regions = def.Regions
	}
	if len(g.SearchKeywords) == 0 {
		g.SearchKeywords = def.SearchKeywords
	}
	if len(g.IncludeKeywords) == 0 {
		g.IncludeKeywords = def.IncludeKeywords
	}
	if len(g.ExcludeKeywords) == 0 {
		g.ExcludeKeywords = def.ExcludeKeywords
	}
	regions := make([]domain.Region, len(g.Regions))
	for i, r := range g.Regions {
		r.Key = strings.ToLower(strings.TrimSpace(r.Key))
		regions[i] = r
	}
	g.Regions = regions
	return g
}

func ValidateGeography(g domain.Geography) error {
	var errs []error
	seen := map[string]bool{}
	for i, r := range g.Regions {
		if r.Key == "" {
			errs = append(errs, fmt.Errorf("region %d has no key", i))
			continue
		}
		if seen[r.Key] {
			errs = append(errs, fmt.Errorf("region %q listed twice", r.Key))
		}
		seen[r.Key] = true
		for _, s := range r.Seeds {
			p := domain.GeoPoint{Lat: s.Lat, Lon: s.Lon}
			if s.Name == "" || !p.Valid() {
				errs = append(errs, fmt.Errorf("region %q: bad seed %+v", r.Key, s))
			}
		}
	}
	return errors.Join(errs...)
}
