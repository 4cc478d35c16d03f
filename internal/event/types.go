package event

// TaskStartedData is the data for task.started events.
type TaskStartedData struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
}

// TaskInterventionData is the data for task.intervention events.
type TaskInterventionData struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
}

// TaskStoppedData is the data for task.stopped events.
type TaskStoppedData struct {
	SessionID string `json:"session_id"`
}

// FileTrackedData is the data for file.tracked events.
type FileTrackedData struct {
	SessionID string `json:"session_id"`
	Path      string `json:"path"`
	Access    string `json:"access"`
}

// ContextSavedData is the data for context.saved events.
type ContextSavedData struct {
	SessionID string `json:"session_id"`
}

// ContextRenderedData is the data for context.rendered events.
type ContextRenderedData struct {
	SessionID string `json:"session_id"`
	Bytes     int    `json:"bytes"`
}

// ContextPrunedData is the data for context.pruned events.
type ContextPrunedData struct {
	SessionIDs []string `json:"session_ids"`
}
