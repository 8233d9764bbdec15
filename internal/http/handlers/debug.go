package handlers

import (
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/alpenlodge/concierge/internal/knowledge"
	"github.com/alpenlodge/concierge/internal/units"
)

// DebugHandler serves the unauthenticated introspection endpoints used
// during deploys to confirm which build and data files are live.
type DebugHandler struct {
	Version   string
	Units     *units.Directory
	Knowledge *knowledge.Base
}

func (h *DebugHandler) VersionInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"name":    "concierge",
		"version": h.Version,
		"go":      runtime.Version(),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				info["revision"] = s.Value
			}
		}
	}
	writeJSON(w, http.StatusOK, info)
}

// KnowledgeInfo lists loaded categories and unit counts without item
// bodies, enough to spot a stale or truncated data file.
func (h *DebugHandler) KnowledgeInfo(w http.ResponseWriter, r *http.Request) {
	cats := h.Knowledge.Categories()
	summary := make([]map[string]any, 0, len(cats))
	for _, c := range cats {
		summary = append(summary, map[string]any{
			"id":    c.ID,
			"title": c.Title,
			"items": len(c.Items),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":  summary,
		"units":       len(h.Units.All()),
		"activeUnits": len(h.Units.Active()),
	})
}
