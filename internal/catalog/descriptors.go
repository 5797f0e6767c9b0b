package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"storefront-gateway/internal/models"
)

// DeriveFilterDescriptors turns the server filter aggregate into the ordered
// descriptor list the filter panel renders. Section order is fixed: category,
// brand, tags, then one section per spec key in the aggregate's own key order,
// then price last. Sections with no selectable options are omitted.
func DeriveFilterDescriptors(agg *models.FilterAggregate) []models.FilterDescriptor {
	if agg == nil {
		return nil
	}
	var out []models.FilterDescriptor

	appendFlat := func(id, label string, options []string) {
		if len(options) == 0 {
			return
		}
		out = append(out, models.FilterDescriptor{
			ID:      id,
			Label:   label,
			Type:    models.FilterCheckbox,
			Options: []models.FilterNode{{Options: options}},
		})
	}
	appendFlat("category", "Category", agg.Categories)
	appendFlat("brand", "Brand", agg.Brands)
	appendFlat("tags", "Tags", agg.Tags)

	sections, err := specSections(agg.Specs)
	if err != nil {
		log.Warnf("skipping malformed specs aggregate: %v", err)
	}
	for _, sec := range sections {
		count := 0
		for _, n := range sec.nodes {
			count += n.OptionCount()
		}
		if count == 0 {
			continue
		}
		out = append(out, models.FilterDescriptor{
			ID:      sec.key,
			Label:   sec.key,
			Type:    models.FilterCheckbox,
			Options: sec.nodes,
		})
	}

	if agg.PriceRange != nil && agg.PriceRange.Max > agg.PriceRange.Min {
		out = append(out, models.FilterDescriptor{
			ID:    "price",
			Label: "Price",
			Type:  models.FilterRange,
			Min:   agg.PriceRange.Min,
			Max:   agg.PriceRange.Max,
			Step:  1,
		})
	}
	return out
}

type specSection struct {
	key   string
	nodes []models.FilterNode
}

// specSections decodes the specs object preserving its key order, which a map
// decode would randomize. Each value is either a flat option list or a nested
// group object of arbitrary depth.
func specSections(raw json.RawMessage) ([]specSection, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("specs is not an object")
	}

	var sections []specSection
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected specs key token %v", keyTok)
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, fmt.Errorf("spec %q: %v", key, err)
		}
		nodes, err := parseFilterNodes(val)
		if err != nil {
			return nil, fmt.Errorf("spec %q: %v", key, err)
		}
		sections = append(sections, specSection{key: key, nodes: nodes})
	}
	return sections, nil
}

// parseFilterNodes builds the option tree for one spec value: a JSON array of
// strings becomes a single leaf, a JSON object becomes one labelled group per
// key (again in key order), recursing into each value.
func parseFilterNodes(raw json.RawMessage) ([]models.FilterNode, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var options []string
		if err := json.Unmarshal(trimmed, &options); err != nil {
			return nil, err
		}
		if len(options) == 0 {
			return nil, nil
		}
		return []models.FilterNode{{Options: options}}, nil
	case '{':
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var nodes []models.FilterNode
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected group key token %v", keyTok)
			}
			var val json.RawMessage
			if err := dec.Decode(&val); err != nil {
				return nil, err
			}
			children, err := parseFilterNodes(val)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, models.FilterNode{Label: key, Children: children})
		}
		return nodes, nil
	default:
		return nil, fmt.Errorf("unsupported spec value %s", string(trimmed))
	}
}
