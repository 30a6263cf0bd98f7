package nodes

// Категории встроенных узлов.
const (
	CategoryInputOutput = "Input/Output"
	CategoryAI          = "AI"
	CategoryLogic       = "Logic"
	CategoryIntegration = "Integration"
	CategoryUtility     = "Utility"
)

// RegisterBuiltins регистрирует все встроенные типы узлов.
func RegisterBuiltins(r *Registry) error {
	builtins := []TypeInfo{
		{
			Type:         TypeUserInput,
			DisplayName:  "User Input",
			Description:  "Захват пользовательских входных данных",
			Category:     CategoryInputOutput,
			Icon:         "input",
			ConfigSchema: UserInputConfigSchema(),
			InputSchema:  UserInputInputSchema(),
			OutputSchema: UserInputOutputSchema(),
			New:          NewUserInputNode,
		},
		{
			Type:         TypeOutput,
			DisplayName:  "Output",
			Description:  "Форматирование и возврат итогового результата workflow",
			Category:     CategoryInputOutput,
			Icon:         "output",
			ConfigSchema: OutputConfigSchema(),
			InputSchema:  OutputInputSchema(),
			OutputSchema: OutputOutputSchema(),
			New:          NewOutputNode,
		},
		{
			Type:         TypeLLMTextGeneration,
			DisplayName:  "LLM Text Generation",
			Description:  "Генерация текста через LLM (OpenAI, Anthropic)",
			Category:     CategoryAI,
			Icon:         "text",
			ConfigSchema: LLMConfigSchema(),
			InputSchema:  LLMInputSchema(),
			OutputSchema: LLMOutputSchema(),
			New:          NewLLMTextGenerationNode,
		},
		{
			Type:         TypeImageGeneration,
			DisplayName:  "Image Generation",
			Description:  "Генерация изображений (DALL·E)",
			Category:     CategoryAI,
			Icon:         "image",
			ConfigSchema: ImageConfigSchema(),
			InputSchema:  ImageInputSchema(),
			OutputSchema: ImageOutputSchema(),
			New:          NewImageGenerationNode,
		},
		{
			Type:         TypeVideoGeneration,
			DisplayName:  "Video Generation",
			Description:  "Генерация видео",
			Category:     CategoryAI,
			Icon:         "video",
			ConfigSchema: VideoConfigSchema(),
			InputSchema:  VideoInputSchema(),
			OutputSchema: VideoOutputSchema(),
			New:          NewVideoGenerationNode,
		},
		{
			Type:         TypeConditionalLogic,
			DisplayName:  "Conditional Logic",
			Description:  "Ветвление IF/ELSE с несколькими условиями",
			Category:     CategoryLogic,
			Icon:         "branch",
			ConfigSchema: ConditionalConfigSchema(),
			InputSchema:  ConditionalInputSchema(),
			OutputSchema: ConditionalOutputSchema(),
			New:          NewConditionalLogicNode,
		},
		{
			Type:         TypeHTTPRequest,
			DisplayName:  "HTTP Request",
			Description:  "HTTP запросы к внешним API",
			Category:     CategoryIntegration,
			Icon:         "api",
			ConfigSchema: HTTPRequestConfigSchema(),
			InputSchema:  HTTPRequestInputSchema(),
			OutputSchema: HTTPRequestOutputSchema(),
			New:          NewHTTPRequestNode,
		},
		{
			Type:         TypeDelay,
			DisplayName:  "Delay",
			Description:  "Задержка выполнения ветки workflow",
			Category:     CategoryUtility,
			Icon:         "clock",
			ConfigSchema: DelayConfigSchema(),
			InputSchema:  DelayInputSchema(),
			OutputSchema: DelayOutputSchema(),
			New:          NewDelayNode,
		},
	}

	for _, info := range builtins {
		if err := r.Register(info); err != nil {
			return err
		}
	}
	return nil
}

// DefaultRegistry создаёт реестр со всеми встроенными узлами.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		// Встроенные типы уникальны, ошибка возможна только
		// при программной ошибке в списке выше.
		panic(err)
	}
	return r
}
