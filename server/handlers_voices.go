package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Voxel-Fox-Ltd/twitch-tts/db"
	"github.com/Voxel-Fox-Ltd/twitch-tts/voice"
)

// HandleVoices returns the voice catalog and the current override table.
func (h *Handlers) HandleVoices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	overrides, err := db.ListVoiceOverrides(r.Context(), h.db)
	if err != nil {
		http.Error(w, "override lookup failed", http.StatusInternalServerError)
		return
	}
	type catalogEntry struct {
		Name     string `json:"name"`
		Language string `json:"language"`
		Display  string `json:"display"`
	}
	var catalog []catalogEntry
	for _, v := range voice.DefaultCatalog() {
		catalog = append(catalog, catalogEntry{Name: v.Name, Language: v.Language, Display: v.Display()})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"catalog":   catalog,
		"overrides": overrides,
	})
}

// HandleVoiceOverride manages one user's override: PUT sets a voice (an empty
// voice mutes the user), DELETE restores the computed default.
func (h *Handlers) HandleVoiceOverride(w http.ResponseWriter, r *http.Request) {
	username := strings.ToLower(strings.TrimPrefix(r.URL.Path, "/voices/overrides/"))
	if username == "" || strings.Contains(username, "/") {
		http.Error(w, "bad username", http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodPut:
		var body struct {
			Voice string `json:"voice"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := db.UpsertVoiceOverride(r.Context(), h.db, username, body.Voice); err != nil {
			http.Error(w, "save failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if err := db.DeleteVoiceOverride(r.Context(), h.db, username); err != nil {
			http.Error(w, "delete failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleSounds lists the configured channel-point sounds.
func (h *Handlers) HandleSounds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sounds, err := db.ListSoundRewards(r.Context(), h.db)
	if err != nil {
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(sounds)
}

// HandleSoundEnable flips a sound's enabled flag. The reward bridge's next
// reconcile pushes the change to the remote catalog.
func (h *Handlers) HandleSoundEnable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/sounds/")
	if name == "" || strings.Contains(name, "/") {
		http.Error(w, "bad sound name", http.StatusBadRequest)
		return
	}
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := db.SetSoundEnabled(r.Context(), h.db, name, body.Enabled); err != nil {
		http.Error(w, "update failed", http.StatusInternalServerError)
		return
	}
	if h.board != nil {
		h.board.SetEnabled(name, body.Enabled)
	}
	w.WriteHeader(http.StatusNoContent)
}
