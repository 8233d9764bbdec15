// Package chat is the HTTP entry point of the concierge widget. It
// routes each message to the booking engine, the knowledge base, the
// weather lookup or the LLM fallback, in that order.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/alpenlodge/concierge/internal/dialogue"
	"github.com/alpenlodge/concierge/internal/knowledge"
	"github.com/alpenlodge/concierge/internal/llm"
	"github.com/alpenlodge/concierge/internal/observability/metrics"
	"github.com/alpenlodge/concierge/internal/session"
	"github.com/alpenlodge/concierge/internal/transcript"
	"github.com/alpenlodge/concierge/internal/weather"
	"github.com/alpenlodge/concierge/pkg/logging"
)

var (
	greetingRe = regexp.MustCompile(`(?i)^\s*(hallo|hi|hey|servus|gr(ü|ue)(ß|ss)\s*(di|gott)?|guten\s+(tag|morgen|abend)|hello|good\s+(morning|afternoon|evening))\s*[!.]*\s*$`)
	weatherRe  = regexp.MustCompile(`(?i)\b(wetter|wettervorhersage|weather|forecast|schneelage|schneebericht)\b`)
)

// Request is the chat widget's wire format. Older widget builds send
// "question" instead of "message".
type Request struct {
	SessionID string        `json:"sessionId"`
	Lang      string        `json:"lang"`
	Message   string        `json:"message"`
	Question  string        `json:"question"`
	Page      string        `json:"page,omitempty"`
	History   []llm.Message `json:"history,omitempty"`
}

// Link is a tappable reference under a reply.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Response is one answered chat turn.
type Response struct {
	Reply     string            `json:"reply"`
	Actions   []dialogue.Action `json:"actions,omitempty"`
	Links     []Link            `json:"links,omitempty"`
	Source    string            `json:"source"`
	SessionID string            `json:"sessionId,omitempty"`
}

// Handler serves POST /api/concierge.
type Handler struct {
	engine      *dialogue.Engine
	store       *session.Store
	knowledge   *knowledge.Base
	weather     *weather.Client
	llm         *llm.Client
	transcripts *transcript.Store
	metrics     *metrics.ConciergeMetrics
	logger      *logging.Logger

	bookingPageURL string
}

// NewHandler wires the chat pipeline. knowledge, weather, llm,
// transcripts and m may each be nil; the pipeline skips what is absent.
func NewHandler(engine *dialogue.Engine, store *session.Store, kb *knowledge.Base, wc *weather.Client, lc *llm.Client, ts *transcript.Store, m *metrics.ConciergeMetrics, logger *logging.Logger, bookingPageURL string) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if bookingPageURL == "" {
		bookingPageURL = "/buchen/"
	}
	return &Handler{
		engine:         engine,
		store:          store,
		knowledge:      kb,
		weather:        wc,
		llm:            lc,
		transcripts:    ts,
		metrics:        m,
		logger:         logger,
		bookingPageURL: bookingPageURL,
	}
}

// ServeHTTP answers one chat turn.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Reply: "Bitte senden Sie eine Nachricht.", Source: "error"})
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		message = strings.TrimSpace(req.Question)
	}
	if message == "" {
		writeJSON(w, http.StatusBadRequest, Response{Reply: "Bitte senden Sie eine Nachricht.", Source: "error"})
		return
	}

	generated := false
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
		generated = true
	}
	lang := req.Lang
	if lang == "" {
		lang = "de"
	}

	h.transcripts.Append(r.Context(), req.SessionID, transcript.Entry{Role: "user", Content: message})

	resp := h.answer(r.Context(), req.SessionID, lang, message, req.History)
	if generated {
		resp.SessionID = req.SessionID
	}
	h.metrics.ObserveChatTurn(resp.Source)
	h.transcripts.Append(r.Context(), req.SessionID, transcript.Entry{Role: "assistant", Content: resp.Reply, Source: resp.Source})

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) answer(ctx context.Context, sessionID, lang, message string, history []llm.Message) Response {
	english := strings.HasPrefix(strings.ToLower(lang), "en")

	if greetingRe.MatchString(message) {
		return h.greeting(lang)
	}

	if h.engine != nil && h.engine.Handles(sessionID, message) {
		reply := h.engine.Turn(ctx, sessionID, lang, message)
		if reply.Err != nil {
			h.logger.Warn("booking turn degraded", "code", reply.Err.Code, "detail", reply.Err.Detail)
		}
		return Response{Reply: reply.Text, Actions: reply.Actions, Source: reply.Source}
	}

	if n := dialogue.BareSelection(message); n > 0 {
		return h.listFollowUp(sessionID, lang, n)
	}

	if h.weather != nil && weatherRe.MatchString(message) {
		if forecast, err := h.weather.Forecast(ctx); err == nil {
			return Response{Reply: forecast.Render(lang), Source: "weather"}
		} else {
			h.logger.Warn("weather lookup failed", "error", err)
		}
	}

	if h.knowledge != nil {
		if cat, ok := h.knowledge.Lookup(message); ok {
			return h.knowledgeReply(sessionID, lang, cat)
		}
	}

	if h.llm.Configured() {
		if len(history) == 0 && h.transcripts.Enabled() {
			if entries, err := h.transcripts.List(ctx, sessionID); err == nil {
				for _, e := range entries {
					role := "user"
					if e.Role == "assistant" {
						role = "assistant"
					}
					history = append(history, llm.Message{Role: role, Content: e.Content})
				}
			}
		}
		if answer, err := h.llm.Reply(ctx, history, message, ""); err == nil && answer != "" {
			return Response{Reply: answer, Source: "llm"}
		} else if err != nil {
			h.logger.Warn("llm reply failed", "error", err)
		}
	}

	text := "Das kann ich leider nicht beantworten. Fragen Sie mich nach Verfügbarkeit, Preisen oder Tipps für die Region!"
	if english {
		text = "I can't answer that one, sorry. Ask me about availability, prices or tips for the area!"
	}
	return Response{Reply: text, Actions: h.startActions(lang), Source: "fallback"}
}

func (h *Handler) greeting(lang string) Response {
	text := "Grüß Gott! Ich bin der Concierge der Alpenlodge. Womit darf ich helfen?"
	if strings.HasPrefix(strings.ToLower(lang), "en") {
		text = "Welcome! I'm the Alpenlodge concierge. How can I help?"
	}
	return Response{Reply: text, Actions: h.startActions(lang), Source: "greeting"}
}

// startActions are the quick buttons shown on a fresh conversation.
func (h *Handler) startActions(lang string) []dialogue.Action {
	if strings.HasPrefix(strings.ToLower(lang), "en") {
		return []dialogue.Action{
			{Type: "link", Label: "Book", URL: h.bookingPageURL},
			{Type: "postback", Label: "Availability", Message: "Check availability"},
			{Type: "postback", Label: "Prices", Message: "What are your prices?"},
			{Type: "postback", Label: "Apartments", Message: "Show apartments"},
			{Type: "postback", Label: "Suites", Message: "Show suites"},
			{Type: "postback", Label: "Premium", Message: "Show premium suites"},
		}
	}
	return []dialogue.Action{
		{Type: "link", Label: "Buchen", URL: h.bookingPageURL},
		{Type: "postback", Label: "Verfügbarkeit", Message: "Verfügbarkeit prüfen"},
		{Type: "postback", Label: "Preise", Message: "Was kosten die Zimmer?"},
		{Type: "postback", Label: "Apartments", Message: "Apartments zeigen"},
		{Type: "postback", Label: "Suiten", Message: "Suiten zeigen"},
		{Type: "postback", Label: "Premium", Message: "Premium Suiten zeigen"},
	}
}

// listFollowUp resolves a bare number against the last knowledge list.
func (h *Handler) listFollowUp(sessionID, lang string, n int) Response {
	english := strings.HasPrefix(strings.ToLower(lang), "en")
	var item *session.ListItem
	if sess := h.store.Get(sessionID); sess != nil && n <= len(sess.LastList) {
		item = &sess.LastList[n-1]
	}
	if item == nil {
		text := "Dazu habe ich gerade keine Liste. Fragen Sie mich zum Beispiel nach Restaurants oder Skigebieten!"
		if english {
			text = "I don't have a list open right now. Ask me about restaurants or ski areas, for example!"
		}
		return Response{Reply: text, Actions: h.startActions(lang), Source: "list"}
	}
	resp := Response{Reply: item.Label, Source: "list"}
	if item.URL != "" {
		resp.Links = []Link{{Label: item.Label, URL: item.URL}}
	}
	return resp
}

// knowledgeReply renders a category as a numbered list and remembers it
// for bare-number follow-ups.
func (h *Handler) knowledgeReply(sessionID, lang string, cat knowledge.Category) Response {
	var b strings.Builder
	b.WriteString(cat.LocalizedTitle(lang))
	b.WriteString(":\n")

	items := cat.Items
	if len(items) > 10 {
		items = items[:10]
	}
	links := make([]Link, 0, len(items))
	list := make([]session.ListItem, 0, len(items))
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s", i+1, item.Name)
		if item.DistanceKm > 0 {
			fmt.Fprintf(&b, " (%.1f km)", item.DistanceKm)
		}
		if item.Description != "" {
			fmt.Fprintf(&b, " – %s", item.Description)
		}
		b.WriteString("\n")

		label := item.Name
		if item.Description != "" {
			label = fmt.Sprintf("%s – %s", item.Name, item.Description)
		}
		list = append(list, session.ListItem{Label: label, URL: item.URL})
		if item.URL != "" {
			links = append(links, Link{Label: item.Name, URL: item.URL})
		}
	}
	if strings.HasPrefix(strings.ToLower(lang), "en") {
		b.WriteString("Reply with a number for more.")
	} else {
		b.WriteString("Antworten Sie mit einer Nummer für mehr.")
	}

	h.store.Update(sessionID, func(sess *session.Session) {
		sess.LastList = list
	})
	return Response{Reply: strings.TrimRight(b.String(), "\n"), Links: links, Source: "knowledge"}
}

// HistoryHandler serves GET /api/concierge/history?sessionId=…
func (h *Handler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing_params"})
		return
	}
	entries, err := h.transcripts.List(r.Context(), sessionID)
	if err != nil {
		h.logger.Warn("history lookup failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream_error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessionId": sessionID, "entries": entries})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
