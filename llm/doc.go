// Package llm connects flows to chat-completion models.
//
// A [Client] turns a [CompletionRequest] into a [CompletionResponse]. The
// [OpenAIClient] implementation speaks the OpenAI chat API, which most hosted
// and local model servers also accept, so pointing BaseURL at an
// OpenAI-compatible endpoint is enough to switch providers.
//
// [PromptUnit] is a flow unit that renders a prompt from the run state,
// calls the client during Execute and stores the answer in Finalize:
//
//	client, err := llm.NewOpenAIClient(llm.Config{APIKey: key, Model: "gpt-4o-mini"})
//	unit, err := llm.NewPromptUnit(client, llm.PromptConfig{
//	    Prompt:    "Summarise: {{.text}}",
//	    OutputKey: "summary",
//	})
//	node := flow.NewNode("summarise", unit)
//
// Provider failures are mapped to [errors.AppError] values so that retry
// decisions use [errors.IsRetryable].
package llm
