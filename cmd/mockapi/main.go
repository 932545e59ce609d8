// mockapi is an in-memory development backend for the mindmesh daemon. It
// implements the REST surface with real ETag optimistic concurrency, the
// SSE subscriptions, and the NUL-delimited completion stream, so the full
// pipeline can be exercised without the production service.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"mindmesh/domain/conversation"
	"mindmesh/domain/generation"
	"mindmesh/domain/graph"
	"mindmesh/domain/source"
)

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	srv := newServer(logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"ETag"},
	}))

	r.Route("/api/mindmaps/{app}", func(r chi.Router) {
		r.Get("/graph", srv.getGraph)
		r.Post("/graph/elements", srv.postElements)
		r.Patch("/graph/elements/{id}", srv.patchElement)
		r.Delete("/graph/elements/{id}", srv.deleteElement)
		r.Get("/history", srv.getHistory)
		r.Post("/history", srv.postHistory)
		r.Get("/documents", srv.getDocuments)
		r.Post("/documents", srv.postDocument)
		r.Delete("/documents/{id}", srv.deleteDocument)
		r.Get("/documents/{id}/versions/{version}/events", srv.sourceEvents)
		r.Post("/generate", srv.postGenerate)
		r.Put("/generate/params", srv.putGenerateParams)
		r.Post("/generation_status", srv.generationEvents)
		r.Put("/appearances/themes/{theme}", srv.putTheme)
		r.Get("/appearances/themes/{theme}/events", srv.themeEvents)
		r.Post("/subscribe", srv.etagEvents)
	})
	r.Post("/api/chat/completion", srv.completion)

	logger.Info("mockapi listening", zap.String("addr", *addr))
	if err := http.ListenAndServe(*addr, r); err != nil {
		logger.Fatal("mockapi failed", zap.Error(err))
	}
}

// hub fans one event stream out to any number of SSE subscribers.
type hub struct {
	mu   sync.Mutex
	subs map[chan string]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan string]struct{})}
}

func (h *hub) subscribe() chan string {
	ch := make(chan string, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan string) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

func (h *hub) publish(payload string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- payload:
		default:
		}
	}
}

type server struct {
	logger *zap.Logger

	mu         sync.Mutex
	etag       int
	elements   []graph.Element
	rootID     string
	undo       [][]graph.Element
	redo       [][]graph.Element
	sources    []source.Source
	generation generation.Status
	generated  bool
	themes     map[string]map[string]interface{}
	params     map[string]interface{}

	etagHub   *hub
	genHub    *hub
	themeHub  *hub
	sourceHub *hub
}

func newServer(logger *zap.Logger) *server {
	root := graph.NewNode(graph.NodeData{Label: "Welcome"})
	return &server{
		logger:     logger,
		etag:       1,
		elements:   []graph.Element{root},
		rootID:     root.ID,
		generation: generation.StatusNotStarted,
		themes:     map[string]map[string]interface{}{},
		params:     map[string]interface{}{},
		etagHub:    newHub(),
		genHub:     newHub(),
		themeHub:   newHub(),
		sourceHub:  newHub(),
	}
}

func (s *server) currentEtag() string {
	return fmt.Sprintf("v%d", s.etag)
}

// bump advances the concurrency token and announces it on the push stream.
// Callers hold s.mu.
func (s *server) bump() {
	s.etag++
	payload, _ := json.Marshal(map[string]string{"etag": s.currentEtag()})
	go s.etagHub.publish(string(payload))
}

// checkMatch enforces If-Match on mutations. A missing header is allowed;
// a stale one gets 412 plus the current token so the client can retry.
func (s *server) checkMatch(w http.ResponseWriter, r *http.Request) bool {
	match := r.Header.Get("If-Match")
	if match != "" && match != s.currentEtag() {
		w.Header().Set("ETag", s.currentEtag())
		http.Error(w, "etag mismatch", http.StatusPreconditionFailed)
		return false
	}
	return true
}

func (s *server) writeJSON(w http.ResponseWriter, etag string, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if etag != "" {
		w.Header().Set("ETag", etag)
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

func (s *server) snapshotForUndo() {
	s.undo = append(s.undo, graph.Clone(s.elements))
	if len(s.undo) > 50 {
		s.undo = s.undo[1:]
	}
	s.redo = nil
}

type graphResponse struct {
	Elements []graph.Element `json:"elements"`
	RootID   string          `json:"root_id,omitempty"`
	CanUndo  bool            `json:"can_undo"`
	CanRedo  bool            `json:"can_redo"`
}

func (s *server) getGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeJSON(w, s.currentEtag(), graphResponse{Elements: s.elements, RootID: s.rootID})
}

func (s *server) postElements(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Elements []graph.Element `json:"elements"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checkMatch(w, r) {
		return
	}
	s.snapshotForUndo()
	res := graph.AddOrUpdateElements(s.elements, payload.Elements, "")
	s.elements = res.Elements
	s.bump()
	s.writeJSON(w, s.currentEtag(), graphResponse{Elements: s.elements})
}

func (s *server) patchElement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var data graph.NodeData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checkMatch(w, r) {
		return
	}
	idx := graph.IndexByID(s.elements, id)
	if idx < 0 || s.elements[idx].Kind != graph.KindNode {
		http.Error(w, "unknown node", http.StatusNotFound)
		return
	}
	s.snapshotForUndo()
	s.elements[idx].Node = data
	s.bump()
	s.writeJSON(w, s.currentEtag(), graphResponse{Elements: s.elements})
}

func (s *server) deleteElement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checkMatch(w, r) {
		return
	}
	if graph.IndexByID(s.elements, id) < 0 {
		http.Error(w, "unknown element", http.StatusNotFound)
		return
	}
	s.snapshotForUndo()
	s.elements, _ = graph.RemoveElement(s.elements, id)
	s.bump()
	s.writeJSON(w, s.currentEtag(), graphResponse{Elements: s.elements})
}

func (s *server) getHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeJSON(w, s.currentEtag(), graphResponse{CanUndo: len(s.undo) > 0, CanRedo: len(s.redo) > 0})
}

func (s *server) postHistory(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checkMatch(w, r) {
		return
	}
	switch action {
	case "undo":
		if len(s.undo) == 0 {
			http.Error(w, "nothing to undo", http.StatusConflict)
			return
		}
		s.redo = append(s.redo, graph.Clone(s.elements))
		s.elements = s.undo[len(s.undo)-1]
		s.undo = s.undo[:len(s.undo)-1]
	case "redo":
		if len(s.redo) == 0 {
			http.Error(w, "nothing to redo", http.StatusConflict)
			return
		}
		s.undo = append(s.undo, graph.Clone(s.elements))
		s.elements = s.redo[len(s.redo)-1]
		s.redo = s.redo[:len(s.redo)-1]
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}
	s.bump()
	s.writeJSON(w, s.currentEtag(), graphResponse{
		Elements: s.elements,
		CanUndo:  len(s.undo) > 0,
		CanRedo:  len(s.redo) > 0,
	})
}

func (s *server) getDocuments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeJSON(w, s.currentEtag(), source.ListResponse{
		Sources:          s.sources,
		GenerationStatus: s.generation,
		Generated:        s.generated,
	})
}

// postDocument registers an upload and simulates its indexing: INPROGRESS
// now, INDEXED announced on the version event stream shortly after.
func (s *server) postDocument(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checkMatch(w, r) {
		return
	}
	doc := source.Source{
		ID:      fmt.Sprintf("doc-%d", len(s.sources)+1),
		Version: 1,
		Name:    payload.Name,
		URL:     payload.URL,
		Type:    source.TypeFile,
		Status:  source.StatusInProgress,
		Active:  true,
	}
	if payload.URL != "" {
		doc.Type = source.TypeLink
	}
	s.sources = append(s.sources, doc)
	s.bump()

	go s.finishIndexing(doc.ID, doc.Version)
	s.writeJSON(w, s.currentEtag(), doc)
}

func (s *server) finishIndexing(id string, version int) {
	time.Sleep(2 * time.Second)

	s.mu.Lock()
	for i := range s.sources {
		if s.sources[i].ID == id && s.sources[i].Version == version {
			s.sources[i].Status = source.StatusIndexed
		}
	}
	s.mu.Unlock()

	payload, _ := json.Marshal(map[string]string{
		"id":      id,
		"version": strconv.Itoa(version),
		"status":  string(source.StatusIndexed),
	})
	s.sourceHub.publish(string(payload))
}

func (s *server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checkMatch(w, r) {
		return
	}
	remaining, changed := source.HandleSourceDelete(s.sources, id)
	if !changed {
		http.Error(w, "unknown document", http.StatusNotFound)
		return
	}
	s.sources = remaining
	s.bump()
	w.WriteHeader(http.StatusNoContent)
}

// postGenerate starts a build and answers with the build's own event
// stream; the response ends after the terminal etag event.
func (s *server) postGenerate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.generation == generation.StatusInProgress {
		s.mu.Unlock()
		http.Error(w, "already generating", http.StatusConflict)
		return
	}
	s.generation = generation.StatusInProgress
	s.mu.Unlock()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher.Flush()

	ch := s.genHub.subscribe()
	defer s.genHub.unsubscribe(ch)
	go s.runGeneration()

	for {
		select {
		case <-r.Context().Done():
			return
		case payload := <-ch:
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			var event struct {
				Etag string `json:"etag"`
			}
			if json.Unmarshal([]byte(payload), &event) == nil && event.Etag != "" {
				return
			}
		}
	}
}

// runGeneration simulates a build: progress events, a generated node per
// indexed source, then the terminal etag event.
func (s *server) runGeneration() {
	steps := []string{"Reading documents", "Extracting topics", "Laying out the map"}
	for _, step := range steps {
		payload, _ := json.Marshal(map[string]interface{}{
			"time":          time.Now().Unix(),
			"user_friendly": step,
		})
		s.genHub.publish(string(payload))
		time.Sleep(time.Second)
	}

	s.mu.Lock()
	var generatedEls []graph.Element
	for i := range s.sources {
		if s.sources[i].Status != source.StatusIndexed {
			continue
		}
		node := graph.NewNode(graph.NodeData{Label: "About " + s.sources[i].Name})
		edge := graph.Element{
			ID:   "gen-" + node.ID,
			Kind: graph.KindEdge,
			Edge: graph.EdgeData{Source: s.rootID, Target: node.ID, Type: graph.EdgeGenerated},
		}
		generatedEls = append(generatedEls, node, edge)
		s.sources[i].InGraph = true
	}
	s.elements = append(s.elements, generatedEls...)
	s.generation = generation.StatusFinished
	s.generated = true
	s.bump()
	etag := s.currentEtag()
	s.mu.Unlock()

	payload, _ := json.Marshal(map[string]string{"etag": etag})
	s.genHub.publish(string(payload))
}

func (s *server) putGenerateParams(w http.ResponseWriter, r *http.Request) {
	var params map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.checkMatch(w, r) {
		return
	}
	s.params = params
	s.bump()
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) putTheme(w http.ResponseWriter, r *http.Request) {
	theme := chi.URLParam(r, "theme")
	var config map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.themes[theme] = config
	s.mu.Unlock()

	payload, _ := json.Marshal(config)
	s.themeHub.publish(string(payload))
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) etagEvents(w http.ResponseWriter, r *http.Request) {
	s.serveSSE(w, r, s.etagHub)
}

func (s *server) generationEvents(w http.ResponseWriter, r *http.Request) {
	s.serveSSE(w, r, s.genHub)
}

func (s *server) themeEvents(w http.ResponseWriter, r *http.Request) {
	s.serveSSE(w, r, s.themeHub)
}

// sourceEvents filters the shared indexing hub down to one (id, version).
func (s *server) sourceEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	version := chi.URLParam(r, "version")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher.Flush()

	ch := s.sourceHub.subscribe()
	defer s.sourceHub.unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case payload := <-ch:
			var event struct {
				ID      string `json:"id"`
				Version string `json:"version"`
			}
			if json.Unmarshal([]byte(payload), &event) != nil {
				continue
			}
			if event.ID != id || event.Version != version {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (s *server) serveSSE(w http.ResponseWriter, r *http.Request, h *hub) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher.Flush()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	keepalive := time.NewTicker(25 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case payload := <-ch:
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// completion streams cumulative NUL-delimited snapshots of a canned bot
// reply, finishing with a graph-elements attachment so the client-side
// merge path is exercised.
func (s *server) completion(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Messages []conversation.Message `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	question := "your question"
	if n := len(payload.Messages); n > 0 {
		question = payload.Messages[n-1].Content
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")

	node := graph.NewNode(graph.NodeData{Label: "Re: " + question, Questions: []string{question}})
	fragment, _ := json.Marshal([]graph.Element{node})

	full := fmt.Sprintf("Here is a note about %q. I added it to your map.", question)
	msg := conversation.Message{ID: node.ID, Role: conversation.RoleBot}
	for i := 8; i < len(full); i += 8 {
		msg.Content = full[:i]
		s.writeSnapshot(w, msg)
		flusher.Flush()
		time.Sleep(80 * time.Millisecond)
	}

	msg.Content = full
	msg.AvailableNodes = []string{node.ID}
	msg.Attachments = []conversation.Attachment{
		{Type: conversation.ElementsAttachmentType, Content: string(fragment)},
	}
	s.writeSnapshot(w, msg)
	flusher.Flush()

	s.mu.Lock()
	res := graph.AddOrUpdateElements(s.elements, []graph.Element{node}, "")
	s.elements = res.Elements
	s.bump()
	s.mu.Unlock()
}

func (s *server) writeSnapshot(w http.ResponseWriter, msg conversation.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn("encode snapshot", zap.Error(err))
		return
	}
	w.Write(append(data, 0))
}
