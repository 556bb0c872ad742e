package models

import "time"

// AgentType names one of the script analysis agents.
type AgentType string

const (
	AgentDialogue  AgentType = "dialogue"
	AgentPlot      AgentType = "plot"
	AgentCharacter AgentType = "character"
	AgentContent   AgentType = "content"
)

// AgentTypes returns the agents in the order their feedback is produced.
func AgentTypes() []AgentType {
	return []AgentType{AgentDialogue, AgentPlot, AgentCharacter, AgentContent}
}

// AgentFeedback is one agent's verdict on a script.
type AgentFeedback struct {
	AgentType   AgentType `json:"agentType"`
	Score       float64   `json:"score"`
	Feedback    string    `json:"feedback"`
	Suggestions []string  `json:"suggestions"`
	Timestamp   time.Time `json:"timestamp"`
}

// ScriptAnalysis is the session of the script module.
type ScriptAnalysis struct {
	ID         string          `json:"id"`
	Filename   string          `json:"filename"`
	UploadedAt time.Time       `json:"uploadedAt"`
	Status     Status          `json:"status"`
	Progress   float64         `json:"progress"`
	Agents     []AgentFeedback `json:"agents"`
	Error      string          `json:"error,omitempty"`
}

// Clone returns a deep copy.
func (s ScriptAnalysis) Clone() ScriptAnalysis {
	out := s
	out.Agents = make([]AgentFeedback, len(s.Agents))
	for i, a := range s.Agents {
		a.Suggestions = append([]string(nil), a.Suggestions...)
		out.Agents[i] = a
	}
	return out
}
