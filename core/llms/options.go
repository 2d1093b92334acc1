package llms

type PromptOptions struct {
	Instructions string
	Environment  *EnvironmentContext
	Tools        []Tool
}

type PromptOption func(*PromptOptions)

func WithInstructions(instructions string) PromptOption {
	return func(o *PromptOptions) {
		o.Instructions = instructions
	}
}

func WithEnvironment(environment *EnvironmentContext) PromptOption {
	return func(o *PromptOptions) {
		o.Environment = environment
	}
}

func WithTools(tools ...Tool) PromptOption {
	return func(o *PromptOptions) {
		o.Tools = append(o.Tools, tools...)
	}
}
