// Package voice holds the synthesis voice catalog and the per-user voice
// resolver. Assignment is deterministic: a user without an override always
// gets the same catalog entry for a given catalog.
package voice

import "strings"

// Voice identifies one synthesis voice on the backend.
type Voice struct {
	Name        string
	Language    string
	DisplayName string
}

// Display returns the human-facing label for a voice: the display name (or
// API name) with the language tag appended for non-English entries.
func (v Voice) Display() string {
	name := v.DisplayName
	if name == "" {
		name = v.Name
	}
	if v.Language == "en" {
		return name
	}
	return name + " (" + v.Language + ")"
}

func english(name string) Voice { return Voice{Name: name, Language: "en"} }

// DefaultCatalog returns the static voice catalog. Order matters: the first
// entry is the fallback when an override names an unknown voice, and the
// hash assignment indexes the English subset in this order.
func DefaultCatalog() []Voice {
	return []Voice{
		english("Brian"),
		english("Amy"),
		english("Emma"),
		english("Geraint"),
		english("Russell"),
		english("Nicole"),
		english("Joey"),
		english("Justin"),
		english("Matthew"),
		english("Joanna"),
		english("Kendra"),
		english("Kimberly"),
		english("Salli"),
		english("Raveena"),
		{Name: "Enrique", Language: "es"},
		{Name: "Conchita", Language: "es"},
		{Name: "es-ES-Standard-A", Language: "es", DisplayName: "Lucia"},
		{Name: "Mia", Language: "es"},
		{Name: "Miguel", Language: "es"},
		{Name: "Penelope", Language: "es"},
	}
}

// Overrides maps a lowercase username to a chosen voice name. An empty voice
// name for a present user means that user is explicitly muted.
type Overrides map[string]string

// Resolve picks the voice for username. Returns ok=false when the user is
// explicitly muted and the caller must suppress speech entirely.
//
// Lookup order: an override, if present, wins (an unknown override voice
// falls back to the first catalog entry). Otherwise the username is hashed
// over the English subset of the catalog, so assignment is stable across
// calls and independent of call order.
func Resolve(username string, overrides Overrides, catalog []Voice) (Voice, bool) {
	if len(catalog) == 0 {
		return Voice{}, false
	}
	key := strings.ToLower(username)

	if chosen, present := overrides[key]; present {
		if chosen == "" {
			return Voice{}, false // muted
		}
		for _, v := range catalog {
			if v.Name == chosen {
				return v, true
			}
		}
		return catalog[0], true
	}

	pool := make([]Voice, 0, len(catalog))
	for _, v := range catalog {
		if v.Language == "en" {
			pool = append(pool, v)
		}
	}
	if len(pool) == 0 {
		return catalog[0], true
	}
	idx := 0
	for _, r := range key {
		idx = (idx + int(r)) % len(pool)
	}
	return pool[idx], true
}
