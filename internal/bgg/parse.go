package bgg

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

type thingResponse struct {
	Items []thingItem `xml:"item"`
}

type thingItem struct {
	Type     string        `xml:"type,attr"`
	ID       string        `xml:"id,attr"`
	Links    []thingLink   `xml:"link"`
	Versions []versionItem `xml:"versions>item"`
	Weight   struct {
		Value string `xml:"value,attr"`
	} `xml:"statistics>ratings>averageweight"`
}

type versionItem struct {
	ID    string      `xml:"id,attr"`
	Links []thingLink `xml:"link"`
}

type thingLink struct {
	Type    string `xml:"type,attr"`
	ID      string `xml:"id,attr"`
	Inbound string `xml:"inbound,attr"`
}

func (l thingLink) inbound(kind string) bool {
	return l.Type == kind && l.Inbound == "true"
}

// Parse extracts Details from a thing response for game id.
// Versions counts distinct version ids other than the game's own, drawn from
// the versions list and inbound boardgameversion links.
func Parse(data []byte, id int) (*Details, error) {
	var resp thingResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("bgg.Parse: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, ErrNotFound
	}
	item := resp.Items[0]
	self := strconv.Itoa(id)

	d := &Details{IsExpansion: item.Type == "boardgameexpansion"}
	if item.Weight.Value != "" {
		w, err := strconv.ParseFloat(item.Weight.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("bgg.Parse: averageweight %q: %w", item.Weight.Value, err)
		}
		d.Weight = w
	}

	versions := make(map[string]struct{})
	addVersion := func(vid string) {
		if vid != "" && vid != self {
			versions[vid] = struct{}{}
		}
	}
	scanLinks := func(links []thingLink) {
		for _, l := range links {
			if l.inbound("boardgameimplementation") {
				d.Reimplements = true
			}
			if l.inbound("boardgameversion") {
				addVersion(l.ID)
			}
		}
	}
	scanLinks(item.Links)
	for _, v := range item.Versions {
		addVersion(v.ID)
		scanLinks(v.Links)
	}

	d.Versions = len(versions)
	d.HasVersions = d.Versions > 1
	return d, nil
}
