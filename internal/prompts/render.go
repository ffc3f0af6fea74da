package prompts

import (
	"fmt"

	lcprompts "github.com/tmc/langchaingo/prompts"
)

// Render interpolates vars into an f-string template.
func Render(text string, vars map[string]string) (string, error) {
	names := make([]string, 0, len(vars))
	values := make(map[string]any, len(vars))
	for k, v := range vars {
		names = append(names, k)
		values[k] = v
	}
	tmpl := lcprompts.PromptTemplate{
		Template:       text,
		InputVariables: names,
		TemplateFormat: lcprompts.TemplateFormatFString,
	}
	out, err := tmpl.Format(values)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out, nil
}

// Render interpolates vars into the prompt text.
func (p Prompt) Render(vars map[string]string) (string, error) {
	return Render(p.Text, vars)
}
