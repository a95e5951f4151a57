package model

import "fmt"

// GetFallbackScript returns the deterministic seven-scene skeleton the LLM
// Oracle Adapter falls back to when every configured provider and retry is
// exhausted. It is intentionally generic: the topic is folded into the hook
// and body scenes so the output still reads as being about something,
// without an external call. Per DESIGN.md's Open Question decision, a
// fallback script is exempt from the Script Quality Gate.
func GetFallbackScript(topic string, tone Tone) *Script {
	return &Script{
		Topic:    topic,
		Tone:     tone,
		Fallback: true,
		Scenes: []Scene{
			{Type: SceneHook, Text: fmt.Sprintf("Most people think %s is simple, but they're wrong", topic), Keywords: []string{"question", "confused"}},
			{Type: SceneBody1, Text: fmt.Sprintf("Here's what actually happens with %s", topic), Keywords: []string{"explain", "detail"}},
			{Type: SceneBody2, Text: "It starts with a single hidden assumption", Keywords: []string{"assumption", "hidden"}},
			{Type: SceneBody3, Text: "That assumption quietly shapes everything after it", Keywords: []string{"chain", "process"}},
			{Type: SceneBody4, Text: "Once you see it, you can't unsee it", Keywords: []string{"realization", "clarity"}},
			{Type: SceneBody5, Text: fmt.Sprintf("So the next time you think about %s, look closer", topic), Keywords: []string{"closer", "look"}},
			{Type: SceneEnding, Text: "Now you know the truth", Keywords: []string{"truth", "reveal"}},
		},
	}
}
