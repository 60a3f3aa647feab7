// Package population holds the population record as stored in the portal index.
package population

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Population is a single population record.
type Population struct {
	Code            string           `json:"code"`
	ElasticID       string           `json:"elasticId,omitempty"`
	Name            string           `json:"name,omitempty"`
	Description     string           `json:"description,omitempty"`
	Latitude        *Coordinate      `json:"latitude,omitempty"`
	Longitude       *Coordinate      `json:"longitude,omitempty"`
	DisplayOrder    int              `json:"display_order,omitempty"`
	Superpopulation *Superpopulation `json:"superpopulation,omitempty"`
	DataCollections []DataCollection `json:"dataCollections,omitempty"`
}

// Superpopulation groups populations by continental ancestry.
type Superpopulation struct {
	Code         string `json:"code,omitempty"`
	Name         string `json:"name,omitempty"`
	DisplayColor string `json:"display_colour,omitempty"`
	DisplayOrder int    `json:"display_order,omitempty"`
}

// DataCollection is a data collection a population was sampled in.
type DataCollection struct {
	Title          string   `json:"title"`
	AnalysisGroups []string `json:"_analysisGroups,omitempty"`
}

// HasDescription reports whether the record can feed the description index.
func (p *Population) HasDescription() bool {
	return p.ElasticID != "" && p.Description != ""
}

// Coordinate is a latitude or longitude. The index stores some of them as
// numeric strings, so both JSON forms decode.
type Coordinate float64

// UnmarshalJSON accepts 12.5, "12.5" and "" (treated as zero).
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("coordinate: %w", err)
		}
		if s == "" {
			*c = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("coordinate %q: %w", s, err)
		}
		*c = Coordinate(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("coordinate: %w", err)
	}
	*c = Coordinate(f)
	return nil
}

// Float64 returns the coordinate in degrees.
func (c Coordinate) Float64() float64 { return float64(c) }
