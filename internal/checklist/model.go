// Package checklist defines the checklist data model shared by the local
// store and the sharing registry, together with the JSON snapshot codec.
package checklist

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/veshchi/backend/internal/faults"
)

// Decoration is the presentation attribute derived from an item's checked
// flag. It is never stored as independent state.
type Decoration string

const (
	// DecorationNone renders an unchecked item.
	DecorationNone Decoration = "none"
	// DecorationStrikethrough renders a checked item.
	DecorationStrikethrough Decoration = "strikethrough"
)

// Item is a single checklist entry. The strikethrough decoration is a pure
// function of Checked, exposed via Decoration().
type Item struct {
	ID      string
	Name    string
	Checked bool
}

// Decoration derives the presentation attribute from the checked flag.
func (i Item) Decoration() Decoration {
	if i.Checked {
		return DecorationStrikethrough
	}
	return DecorationNone
}

// List is a locally stored checklist catalog entry.
type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type itemPayload struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	IsChecked      bool       `json:"isChecked"`
	TextDecoration Decoration `json:"textDecoration"`
}

// MarshalJSON emits the wire shape with the decoration derived from Checked.
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(itemPayload{
		ID:             i.ID,
		Name:           i.Name,
		IsChecked:      i.Checked,
		TextDecoration: i.Decoration(),
	})
}

// UnmarshalJSON decodes the wire shape. A stored decoration that disagrees
// with the checked flag is discarded; the flag wins.
func (i *Item) UnmarshalJSON(data []byte) error {
	var payload itemPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	i.ID = payload.ID
	i.Name = payload.Name
	i.Checked = payload.IsChecked
	return nil
}

// EncodeItems serializes an item collection into the snapshot text format.
func EncodeItems(items []Item) (string, error) {
	if items == nil {
		items = []Item{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode items: %w", err)
	}
	return string(encoded), nil
}

// DecodeItems parses a snapshot back into an item collection.
func DecodeItems(data string) ([]Item, error) {
	if strings.TrimSpace(data) == "" {
		return nil, faults.New(faults.KindValidation, "the list is empty")
	}
	var items []Item
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, faults.Wrap(faults.KindCorruptData, "stored list data is not decodable", err)
	}
	return items, nil
}

// DecodeLists parses a serialized catalog of lists.
func DecodeLists(data string) ([]List, error) {
	var lists []List
	if err := json.Unmarshal([]byte(data), &lists); err != nil {
		return nil, faults.Wrap(faults.KindCorruptData, "stored list catalog is not decodable", err)
	}
	return lists, nil
}

// EncodeLists serializes a catalog of lists.
func EncodeLists(lists []List) (string, error) {
	if lists == nil {
		lists = []List{}
	}
	encoded, err := json.Marshal(lists)
	if err != nil {
		return "", fmt.Errorf("encode lists: %w", err)
	}
	return string(encoded), nil
}
