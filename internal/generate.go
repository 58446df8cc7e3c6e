package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const scriptSystemPrompt = "You write original short-form video scripts and reply with strict JSON only."

// Scene is one storyboard beat of a generated script
type Scene struct {
	Index        int     `json:"index"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Narration    string  `json:"narration"`
	Visual       string  `json:"visual"`
	OnScreenText string  `json:"on_screen_text"`
}

// Script is a generated video script with its storyboard
type Script struct {
	Topic        string   `json:"topic"`
	Title        string   `json:"title"`
	Hook         string   `json:"hook"`
	Scenes       []Scene  `json:"scenes"`
	CallToAction string   `json:"call_to_action"`
	Hashtags     []string `json:"hashtags"`
	Model        string   `json:"model,omitempty"`
}

// ScriptGenerator turns observed trends into a new script
type ScriptGenerator struct {
	client  ChatCompleter
	prompts *PromptManager
	timeout time.Duration
}

// NewScriptGenerator creates a generator around a chat model or chain
func NewScriptGenerator(client ChatCompleter, prompts *PromptManager, timeout time.Duration) *ScriptGenerator {
	return &ScriptGenerator{client: client, prompts: prompts, timeout: timeout}
}

// NewScriptPromptData selects the trend lists that feed the script prompt
func NewScriptPromptData(topic string, durationSeconds int, trends *Trends) ScriptPromptData {
	data := ScriptPromptData{Topic: topic, DurationSeconds: durationSeconds}
	if trends != nil {
		data.Videos = trends.Videos
		data.HookTypes = trends.HookTypes
		data.Techniques = trends.Techniques
		data.Sections = trends.Sections
		data.Tones = trends.Tones
		data.CallsToAction = trends.CallsToAction
		data.ExampleHooks = trends.ExampleHooks
	}
	return data
}

// Generate asks the model for a script about topic lasting about durationSeconds
func (g *ScriptGenerator) Generate(ctx context.Context, topic string, durationSeconds int, trends *Trends) (*Script, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	if durationSeconds <= 0 {
		durationSeconds = 45
	}

	prompt, err := g.prompts.CreatePrompt(NewScriptPromptData(topic, durationSeconds, trends))
	if err != nil {
		return nil, fmt.Errorf("creating prompt: %w", err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	content, err := g.client.Complete(ctx, scriptSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("requesting script: %w", err)
	}

	var script Script
	if err := DecodeLLMJSON(content, &script); err != nil {
		return nil, fmt.Errorf("decoding script: %w", err)
	}
	if len(script.Scenes) == 0 {
		return nil, errors.New("script has no scenes")
	}
	for i := range script.Scenes {
		if script.Scenes[i].Index == 0 {
			script.Scenes[i].Index = i + 1
		}
	}
	script.Topic = topic
	script.Model = g.client.Model()
	return &script, nil
}

// ScriptMarkdown renders a script and its storyboard as Markdown
func ScriptMarkdown(script *Script) string {
	var b strings.Builder

	title := script.Title
	if title == "" {
		title = script.Topic
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if script.Hook != "" {
		fmt.Fprintf(&b, "**Hook:** %s\n\n", script.Hook)
	}

	b.WriteString("## Storyboard\n\n")
	b.WriteString("| # | Time | Narration | Visual | On screen |\n")
	b.WriteString("|---|------|-----------|--------|-----------|\n")
	for _, s := range script.Scenes {
		fmt.Fprintf(&b, "| %d | %s-%s | %s | %s | %s |\n", s.Index,
			formatTimestamp(s.Start), formatTimestamp(s.End),
			tableCell(s.Narration), tableCell(s.Visual), tableCell(s.OnScreenText))
	}

	if script.CallToAction != "" {
		fmt.Fprintf(&b, "\n**Call to action:** %s\n", script.CallToAction)
	}
	if len(script.Hashtags) > 0 {
		tags := make([]string, 0, len(script.Hashtags))
		for _, tag := range script.Hashtags {
			tags = append(tags, "#"+strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		}
		fmt.Fprintf(&b, "\n%s\n", strings.Join(tags, " "))
	}
	return b.String()
}
