// Package testdata embeds recorded landmark sets used across package tests.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/ayusman/mudra/internal/detector"
)

//go:embed landmarks/*.json
var landmarksFS embed.FS

// LoadHand loads a landmark fixture by name, without the .json extension.
func LoadHand(name string) (detector.HandLandmarks, error) {
	data, err := landmarksFS.ReadFile("landmarks/" + name + ".json")
	if err != nil {
		return detector.HandLandmarks{}, fmt.Errorf("load hand %s: %w", name, err)
	}

	var hand detector.HandLandmarks
	if err := json.Unmarshal(data, &hand); err != nil {
		return detector.HandLandmarks{}, fmt.Errorf("decode hand %s: %w", name, err)
	}

	return hand, nil
}

// HandNames lists every embedded fixture.
func HandNames() ([]string, error) {
	entries, err := landmarksFS.ReadDir("landmarks")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), path.Ext(entry.Name())))
	}

	return names, nil
}
