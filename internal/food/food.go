// Package food serves the embedded pet food brand catalogue used by
// clients to convert between grams and calories when configuring a
// feeder.
package food

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed brands.json
var brandsJSON []byte

// Species groups catalogue entries by target animal.
type Species string

const (
	SpeciesCat Species = "cats"
	SpeciesDog Species = "dogs"
)

// Brand is one catalogue entry.
type Brand struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	CaloriesPerGram float64 `json:"caloriesPerGram"`
}

// Catalogue is the full brand listing, keyed by species.
type Catalogue struct {
	Cats []Brand `json:"cats"`
	Dogs []Brand `json:"dogs"`
}

var (
	loadOnce sync.Once
	loaded   Catalogue
	loadErr  error
	byID     map[string]Brand
)

func load() {
	loadErr = json.Unmarshal(brandsJSON, &loaded)
	if loadErr != nil {
		loadErr = fmt.Errorf("parsing embedded brand catalogue: %w", loadErr)
		return
	}
	byID = make(map[string]Brand, len(loaded.Cats)+len(loaded.Dogs))
	for _, b := range loaded.Cats {
		byID[b.ID] = b
	}
	for _, b := range loaded.Dogs {
		byID[b.ID] = b
	}
}

// Brands returns the full catalogue.
func Brands() (Catalogue, error) {
	loadOnce.Do(load)
	return loaded, loadErr
}

// ByID looks up a single brand.
func ByID(id string) (Brand, bool) {
	loadOnce.Do(load)
	if loadErr != nil {
		return Brand{}, false
	}
	b, ok := byID[id]
	return b, ok
}
