package ports

import "fmt"

// Routes builds the backend REST paths. Every mindmap path is scoped to
// one app.
type Routes struct {
	App string
}

func (r Routes) Graph() string {
	return fmt.Sprintf("/api/mindmaps/%s/graph", r.App)
}

func (r Routes) GraphElements() string {
	return fmt.Sprintf("/api/mindmaps/%s/graph/elements", r.App)
}

func (r Routes) GraphElement(id string) string {
	return fmt.Sprintf("/api/mindmaps/%s/graph/elements/%s", r.App, id)
}

func (r Routes) Documents() string {
	return fmt.Sprintf("/api/mindmaps/%s/documents", r.App)
}

func (r Routes) Document(id string) string {
	return fmt.Sprintf("/api/mindmaps/%s/documents/%s", r.App, id)
}

func (r Routes) DocumentVersionEvents(id string, version int) string {
	return fmt.Sprintf("/api/mindmaps/%s/documents/%s/versions/%d/events", r.App, id, version)
}

func (r Routes) DocumentVersionActive(id string, version int) string {
	return fmt.Sprintf("/api/mindmaps/%s/documents/%s/versions/%d/active", r.App, id, version)
}

func (r Routes) Generate() string {
	return fmt.Sprintf("/api/mindmaps/%s/generate", r.App)
}

func (r Routes) GenerateParams() string {
	return fmt.Sprintf("/api/mindmaps/%s/generate/params", r.App)
}

func (r Routes) GenerationStatus() string {
	return fmt.Sprintf("/api/mindmaps/%s/generation_status", r.App)
}

func (r Routes) History(action string) string {
	return fmt.Sprintf("/api/mindmaps/%s/history?action=%s", r.App, action)
}

func (r Routes) HistoryAvailability() string {
	return fmt.Sprintf("/api/mindmaps/%s/history", r.App)
}

func (r Routes) Theme(theme string) string {
	return fmt.Sprintf("/api/mindmaps/%s/appearances/themes/%s", r.App, theme)
}

func (r Routes) ThemeEvents(theme string) string {
	return fmt.Sprintf("/api/mindmaps/%s/appearances/themes/%s/events", r.App, theme)
}

func (r Routes) Subscribe() string {
	return fmt.Sprintf("/api/mindmaps/%s/subscribe", r.App)
}

func (r Routes) Completion() string {
	return "/api/chat/completion"
}
