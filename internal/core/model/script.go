package model

// SceneType identifies a scene's position in the seven-scene script arc.
type SceneType string

const (
	SceneHook  SceneType = "hook"
	SceneBody1 SceneType = "body_1"
	SceneBody2 SceneType = "body_2"
	SceneBody3 SceneType = "body_3"
	SceneBody4 SceneType = "body_4"
	SceneBody5 SceneType = "body_5"
	SceneEnding SceneType = "ending"
)

// SceneOrder is the fixed ordering every Script must follow.
var SceneOrder = []SceneType{
	SceneHook, SceneBody1, SceneBody2, SceneBody3, SceneBody4, SceneBody5, SceneEnding,
}

// Scene is a single beat of the script the oracle produces.
type Scene struct {
	Type     SceneType `json:"type"`
	Text     string    `json:"text"`
	Keywords []string  `json:"keywords"`
}

// Script is the seven-scene contract demanded of the LLM Oracle Adapter.
type Script struct {
	Topic    string  `json:"topic"`
	Tone     Tone    `json:"tone"`
	Scenes   []Scene `json:"scenes"`
	Fallback bool    `json:"-"`
}

// Hook returns the first scene's text, or "" for a malformed script.
func (s *Script) Hook() string {
	if len(s.Scenes) == 0 {
		return ""
	}
	return s.Scenes[0].Text
}

// Ending returns the last scene's text, or "" for a malformed script.
func (s *Script) Ending() string {
	if len(s.Scenes) == 0 {
		return ""
	}
	return s.Scenes[len(s.Scenes)-1].Text
}
