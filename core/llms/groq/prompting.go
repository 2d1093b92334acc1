package groq

import (
	"fmt"
	"strings"

	"github.com/jinzhu/copier"

	"github.com/fokus-assistant/fokus-core/core/llms"
)

// toolDeclaration mirrors llms.Tool for prompt rendering. Copies are taken
// with copier so callers' tool slices are never mutated.
type toolDeclaration struct {
	Name        string
	Description string
	Parameters  map[string]llms.ParameterBase
}

func buildSystemPrompt(options llms.PromptOptions) string {
	var prompt strings.Builder
	if options.Instructions != "" {
		prompt.WriteString(options.Instructions)
		prompt.WriteString("\n\n")
	}

	var tools []toolDeclaration
	copier.Copy(&tools, options.Tools)
	if len(tools) > 0 {
		prompt.WriteString("You may request exactly one of these tools per reply, or none:\n")
		for _, tool := range tools {
			prompt.WriteString(fmt.Sprintf("- %s: %s\n", tool.Name, tool.Description))
			for name, parameter := range tool.Parameters {
				prompt.WriteString(fmt.Sprintf("    %s (%s): %s\n", name, parameter.Type, parameter.Description))
			}
		}
		prompt.WriteString("Use only declared tool names and parameters. Leave tool_call out entirely when no action is needed.\n")
	}

	if environment := options.Environment; environment != nil {
		prompt.WriteString("\nCurrent environment:\n")
		if environment.NowLocal != "" {
			prompt.WriteString("- Local time: " + environment.NowLocal + "\n")
		}
		if environment.LightLevelLux != nil {
			prompt.WriteString(fmt.Sprintf("- Ambient light: %.0f lux\n", *environment.LightLevelLux))
		}
		if environment.AirQuality != "" {
			prompt.WriteString("- Air quality: " + environment.AirQuality + "\n")
		}
		for _, event := range environment.UpcomingEvents {
			prompt.WriteString("- Upcoming: " + event + "\n")
		}
	}

	return strings.TrimRight(prompt.String(), "\n")
}
