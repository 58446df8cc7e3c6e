package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPromptManagerEmbeddedDefault(t *testing.T) {
	pm := NewPromptManager(t.TempDir(), AnalysisPromptFile, "")
	data := NewAnalysisPromptData(
		&VideoMetadata{Title: "Three hooks", Channel: "Creator Lab", Duration: 42, Tags: []string{"hooks", "editing"}},
		&Transcript{Text: "Stop. Watch this.", Segments: []Segment{{Start: 0, End: 1.2, Text: "Stop."}, {Start: 1.2, End: 62, Text: "Watch this."}}, Duration: 40},
	)

	prompt, err := pm.CreatePrompt(data)
	if err != nil {
		t.Fatalf("CreatePrompt: %v", err)
	}
	for _, want := range []string{
		"Title: Three hooks",
		"Duration: 42 seconds",
		"Tags: hooks, editing",
		"[0:00.0 - 0:01.2] Stop.",
		"[0:01.2 - 1:02.0] Watch this.",
		`"call_to_action"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestPromptManagerPrefersConfigDirFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ScriptPromptFile), []byte("custom {{.Topic}}"), 0644); err != nil {
		t.Fatal(err)
	}

	prompt, err := NewPromptManager(dir, ScriptPromptFile, "").CreatePrompt(ScriptPromptData{Topic: "budget travel"})
	if err != nil {
		t.Fatalf("CreatePrompt: %v", err)
	}
	if prompt != "custom budget travel" {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestPromptManagerInlineTemplate(t *testing.T) {
	pm := NewPromptManager(t.TempDir(), AnalysisPromptFile, "Summarize {{.Title}} in one line please")
	prompt, err := pm.CreatePrompt(AnalysisPromptData{Title: "Clip"})
	if err != nil {
		t.Fatalf("CreatePrompt: %v", err)
	}
	if prompt != "Summarize Clip in one line please" {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestPromptManagerExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mine.tmpl")
	if err := os.WriteFile(path, []byte("from file: {{.Topic}}"), 0644); err != nil {
		t.Fatal(err)
	}
	prompt, err := NewPromptManager(t.TempDir(), ScriptPromptFile, path).CreatePrompt(ScriptPromptData{Topic: "x"})
	if err != nil {
		t.Fatalf("CreatePrompt: %v", err)
	}
	if prompt != "from file: x" {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestPromptManagerBadTemplate(t *testing.T) {
	_, err := NewPromptManager(t.TempDir(), AnalysisPromptFile, "broken {{.Title").CreatePrompt(AnalysisPromptData{})
	if err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestScriptPromptRendersTrends(t *testing.T) {
	data := NewScriptPromptData("meal prep", 30, &Trends{
		Videos:       4,
		HookTypes:    []TrendCount{{"question", 3}, {"bold claim", 1}},
		ExampleHooks: []string{"You are cooking rice wrong."},
	})
	prompt, err := NewPromptManager(t.TempDir(), ScriptPromptFile, "").CreatePrompt(data)
	if err != nil {
		t.Fatalf("CreatePrompt: %v", err)
	}
	for _, want := range []string{"about: meal prep", "30 seconds", "4 analyzed videos", "Hook types: question (3), bold claim (1)", "- You are cooking rice wrong."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := map[float64]string{0: "0:00.0", 3: "0:03.0", 75.5: "1:15.5", 600: "10:00.0"}
	for in, want := range tests {
		if got := formatTimestamp(in); got != want {
			t.Errorf("formatTimestamp(%v) = %q, want %q", in, got, want)
		}
	}
}
