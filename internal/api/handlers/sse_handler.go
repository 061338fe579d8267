package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/internal/domain/providers"
	"github.com/zatekoja/nextbestaction/internal/infrastructure/observability"
)

const defaultHeartbeat = 30 * time.Second

var streamableEvents = map[entities.RecommendationEventType]bool{
	entities.RecommendationEventCreated:   true,
	entities.RecommendationEventStarted:   true,
	entities.RecommendationEventExecuted:  true,
	entities.RecommendationEventCancelled: true,
	entities.RecommendationEventRejected:  true,
}

// SSEHandler streams recommendation lifecycle events as Server-Sent Events
type SSEHandler struct {
	eventBus  providers.EventBus
	heartbeat time.Duration
	clients   map[string]int // channel -> connected clients
	mu        sync.RWMutex
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		heartbeat: defaultHeartbeat,
		clients:   make(map[string]int),
	}
}

// SetHeartbeat changes the keep-alive interval
func (h *SSEHandler) SetHeartbeat(d time.Duration) {
	if d > 0 {
		h.heartbeat = d
	}
}

// StreamRecommendations handles GET /api/stream/recommendations.
// ?event_type=a,b narrows the stream to the listed event types.
func (h *SSEHandler) StreamRecommendations(w http.ResponseWriter, r *http.Request) {
	wanted := make(map[entities.RecommendationEventType]bool)
	if raw := r.URL.Query().Get("event_type"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			t := entities.RecommendationEventType(strings.TrimSpace(part))
			if !streamableEvents[t] {
				respondWithError(w, http.StatusBadRequest, fmt.Sprintf("unknown event type %q", t))
				return
			}
			wanted[t] = true
		}
	}

	keep := func(event *entities.RecommendationEvent) bool {
		return len(wanted) == 0 || wanted[event.EventType]
	}
	h.stream(w, r, providers.EventChannelRecommendations, map[string]interface{}{
		"channel":   providers.EventChannelRecommendations,
		"timestamp": time.Now().UTC(),
	}, keep)
}

// StreamHCPRecommendations handles GET /api/stream/hcps/{hcpId}
func (h *SSEHandler) StreamHCPRecommendations(w http.ResponseWriter, r *http.Request) {
	hcpID := r.PathValue("hcpId")
	if strings.TrimSpace(hcpID) == "" {
		respondWithError(w, http.StatusBadRequest, "hcp id is required")
		return
	}

	h.stream(w, r, providers.GetHCPChannel(hcpID), map[string]interface{}{
		"hcp_id":    hcpID,
		"timestamp": time.Now().UTC(),
	}, nil)
}

// GetClientCount returns the number of connected clients
func (h *SSEHandler) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, n := range h.clients {
		count += n
	}
	return count
}

func (h *SSEHandler) stream(w http.ResponseWriter, r *http.Request, channel string, hello map[string]interface{}, keep func(*entities.RecommendationEvent) bool) {
	logger := observability.LoggerFromContext(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	eventChan, err := h.eventBus.Subscribe(r.Context(), channel)
	if err != nil {
		logger.Error().Err(err).Str("channel", channel).Msg("failed to subscribe")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	h.registerClient(channel)
	defer h.unregisterClient(channel)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.sendEvent(w, "connected", hello)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug().Str("channel", channel).Msg("stream client disconnected")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now().UTC(),
			})
			flusher.Flush()
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil || (keep != nil && !keep(event)) {
				continue
			}
			h.sendEvent(w, string(event.EventType), event)
			flusher.Flush()
		}
	}
}

func (h *SSEHandler) registerClient(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[channel]++
}

func (h *SSEHandler) unregisterClient(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[channel]--
	if h.clients[channel] <= 0 {
		delete(h.clients, channel)
	}
}

func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		observability.GetLogger().Error().Err(err).Str("event", eventType).Msg("failed to marshal event data")
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}
