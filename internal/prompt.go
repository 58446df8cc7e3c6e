package internal

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

const (
	// AnalysisPromptFile is the default analysis template in the config directory
	AnalysisPromptFile = "analysis_prompt.txt"
	// ScriptPromptFile is the default script generation template in the config directory
	ScriptPromptFile = "script_prompt.txt"
)

// AnalysisPromptData for analysis template injection
type AnalysisPromptData struct {
	Title       string
	Channel     string
	Description string
	Duration    float64
	Tags        []string
	Transcript  string
	Segments    []Segment
}

// NewAnalysisPromptData collects the template fields for one video
func NewAnalysisPromptData(meta *VideoMetadata, transcript *Transcript) AnalysisPromptData {
	data := AnalysisPromptData{}
	if transcript != nil {
		data.Transcript = transcript.Text
		data.Segments = transcript.Segments
		data.Duration = transcript.Duration
	}
	if meta != nil {
		data.Title = meta.Title
		data.Channel = meta.Channel
		data.Description = meta.Description
		data.Tags = meta.Tags
		if meta.Duration > 0 {
			data.Duration = meta.Duration
		}
	}
	return data
}

// ScriptPromptData for script generation template injection
type ScriptPromptData struct {
	Topic           string
	DurationSeconds int
	Videos          int
	HookTypes       []TrendCount
	Techniques      []TrendCount
	Sections        []TrendCount
	Tones           []TrendCount
	CallsToAction   []TrendCount
	ExampleHooks    []string
}

// PromptManager handles loading and processing prompt templates
type PromptManager struct {
	promptFile   string
	promptString string
	configDir    string
	defaultName  string
}

// NewPromptManager creates a prompt manager for the template named defaultName.
// promptSetting may be a file path or an inline template; empty selects the default.
func NewPromptManager(configDir, defaultName, promptSetting string) *PromptManager {
	pm := &PromptManager{
		configDir:   configDir,
		defaultName: defaultName,
	}

	if promptSetting != "" {
		if IsLikelyFilePath(promptSetting) && FileExists(promptSetting) {
			pm.promptFile = promptSetting
		} else {
			pm.promptString = promptSetting
		}
	}

	return pm
}

// CreatePrompt renders the template with data
func (pm *PromptManager) CreatePrompt(data any) (string, error) {
	tmplContent, err := pm.templateContent()
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(pm.defaultName).Funcs(promptFuncs).Parse(tmplContent)
	if err != nil {
		return "", fmt.Errorf("parsing prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing prompt template: %w", err)
	}

	return buf.String(), nil
}

func (pm *PromptManager) templateContent() (string, error) {
	if pm.promptString != "" {
		return pm.promptString, nil
	}

	promptFile := pm.promptFile
	if promptFile == "" {
		promptFile = filepath.Join(pm.configDir, pm.defaultName)
		if !FileExists(promptFile) {
			content, err := defaultFS.ReadFile(pm.defaultName)
			if err != nil {
				return "", fmt.Errorf("reading embedded prompt template: %w", err)
			}
			return string(content), nil
		}
	}

	content, err := os.ReadFile(promptFile)
	if err != nil {
		return "", fmt.Errorf("reading prompt template: %w", err)
	}
	return string(content), nil
}

var promptFuncs = template.FuncMap{
	"ts":   formatTimestamp,
	"join": strings.Join,
}

// formatTimestamp renders seconds as m:ss.s
func formatTimestamp(seconds float64) string {
	minutes := int(seconds) / 60
	return fmt.Sprintf("%d:%04.1f", minutes, seconds-float64(minutes*60))
}

// IsLikelyFilePath uses heuristics to determine if a string is likely a file path
func IsLikelyFilePath(s string) bool {
	if strings.Contains(s, "/") || strings.Contains(s, "\\") {
		return true
	}

	if strings.Contains(s, ".txt") || strings.Contains(s, ".md") ||
		strings.Contains(s, ".template") || strings.Contains(s, ".tmpl") {
		return true
	}

	if len(s) > 200 {
		return false
	}

	return !strings.Contains(s, " ") && !strings.Contains(s, "\n")
}
