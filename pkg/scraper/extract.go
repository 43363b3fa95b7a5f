package scraper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/weather"
	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

var ErrRegionNotFound = errors.New("scrape region not found")

// Tile is one city plate on the weekly map, values as rendered
type Tile struct {
	Name      string
	Condition string
	Max       string
}

// classXPath matches elements carrying the class as a whole word
func classXPath(class string) string {
	return fmt.Sprintf("contains(concat(' ', normalize-space(@class), ' '), ' %s ')", class)
}

var (
	xpathPlate = ".//*[" + classXPath("weather-forecast-plate") + "]"
	xpathName  = ".//*[" + classXPath("weather-forecast-name") + "]"
	xpathIcon  = ".//*[" + classXPath("weather-telop-icon") + "]//img"
	xpathMax   = ".//*[" + classXPath("max-temp") + "]"
)

// ExtractTiles finds the region by CSS selector and reads all plates inside it.
// A document without the region is an error, a region without plates is not.
func ExtractTiles(document, selector string) ([]Tile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("could not parse document: %w", err)
	}

	region := doc.Find(selector)
	if region.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRegionNotFound, selector)
	}

	var tiles []Tile
	seen := map[*html.Node]bool{}
	for _, root := range region.Nodes {
		plates, err := htmlquery.QueryAll(root, xpathPlate)
		if err != nil {
			return nil, fmt.Errorf("could not query weather plates: %w", err)
		}

		for _, plate := range plates {
			if seen[plate] {
				continue // nested regions
			}
			seen[plate] = true

			tile, err := parseTile(plate)
			if err != nil {
				return nil, err
			}
			tiles = append(tiles, tile)
		}
	}

	return tiles, nil
}

func parseTile(plate *html.Node) (Tile, error) {
	tile := Tile{}

	name, err := htmlquery.Query(plate, xpathName)
	if err != nil {
		return tile, fmt.Errorf("could not query city name: %w", err)
	}
	if name != nil {
		// after the DOM replacement the Japanese name lives in data-jp-name
		tile.Name = strings.TrimSpace(htmlquery.SelectAttr(name, "data-jp-name"))
		if tile.Name == "" {
			tile.Name = strings.TrimSpace(htmlquery.InnerText(name))
		}
	}

	icon, err := htmlquery.Query(plate, xpathIcon)
	if err != nil {
		return tile, fmt.Errorf("could not query weather icon: %w", err)
	}
	if icon != nil {
		tile.Condition = strings.TrimSpace(htmlquery.SelectAttr(icon, "alt"))
	}

	maxTemp, err := htmlquery.Query(plate, xpathMax)
	if err != nil {
		return tile, fmt.Errorf("could not query max temperature: %w", err)
	}
	if maxTemp != nil {
		tile.Max = strings.TrimSpace(htmlquery.InnerText(maxTemp))
	}

	return tile, nil
}

// Names returns the non-empty city names in page order
func Names(tiles []Tile) []string {
	names := make([]string, 0, len(tiles))
	for _, t := range tiles {
		if t.Name != "" {
			names = append(names, t.Name)
		}
	}

	return names
}

// BuildEntries turns tiles into entries, tiles without a name are dropped
func BuildEntries(tiles []Tile, mapping map[string]string) []weather.Entry {
	entries := make([]weather.Entry, 0, len(tiles))
	for _, t := range tiles {
		if t.Name == "" {
			continue
		}

		translated, ok := mapping[t.Name]
		if !ok || translated == "" {
			translated = t.Name
		}

		maxC, _ := weather.ParseTemperature(t.Max)
		entries = append(entries, weather.Entry{
			City:           t.Name,
			CityTranslated: translated,
			Condition:      t.Condition,
			Category:       weather.Categorize(t.Condition),
			MaxC:           maxC,
		})
	}

	return entries
}
