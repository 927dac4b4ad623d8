package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/Voxel-Fox-Ltd/twitch-tts/db"
	"github.com/Voxel-Fox-Ltd/twitch-tts/playback"
)

// safeConfigKeys are the runtime-editable keys. Secrets never pass through
// this endpoint.
var safeConfigKeys = map[string]bool{
	"LOG_LEVEL":         true,
	"LOG_FORMAT":        true,
	"TWITCH_CHANNELS":   true,
	"TTS_OUTPUT_POLICY": true,
	"TTS_ROLE_MASK":     true,
	"TTS_SYNTH_BACKEND": true,
	"TTS_PLAYER":        true,
}

// HandleConfig handles GET and PUT requests for safe configuration keys.
// Values written here land in the kv table with a cfg: prefix and override
// the environment on the next read.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		out := map[string]string{}
		for k := range safeConfigKeys {
			v, err := db.GetKV(r.Context(), h.db, "cfg:"+k)
			if err != nil || v == "" {
				v = os.Getenv(k)
			}
			if v != "" {
				out[k] = v
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	case http.MethodPut:
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		for k, v := range body {
			if !safeConfigKeys[k] {
				continue
			}
			v = strings.TrimSpace(v)
			if k == "TTS_OUTPUT_POLICY" {
				policy, err := playback.ParsePolicy(v)
				if err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				if h.scheduler != nil {
					h.scheduler.SetPolicy(policy)
				}
			}
			if err := db.SetKV(r.Context(), h.db, "cfg:"+k, v); err != nil {
				slog.Error("failed to update config", slog.String("key", k), slog.Any("err", err))
				http.Error(w, "failed to update config", http.StatusInternalServerError)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
