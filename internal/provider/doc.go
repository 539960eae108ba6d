// Package provider provides the LLM provider abstraction the Worker drives
// its turn loop through.
//
// Provider is the interface every backend implements: ID/Name, Models,
// ChatModel (the underlying Eino model), and CreateCompletion (a streaming
// chat completion). A concrete Anthropic-backed implementation is the only
// one kept, built on Eino's claude chat model, so the module is runnable
// end to end — but nothing outside this package depends on anything but
// the Provider interface, so a second backend is a matter of implementing
// it and registering it in InitializeProviders, not a change anywhere else.
//
//	provider, err := NewAnthropicProvider(ctx, &AnthropicConfig{
//	    ID:        "anthropic",
//	    APIKey:    "sk-...",
//	    Model:     "claude-sonnet-4-20250514",
//	    MaxTokens: 8192,
//	})
//
// # Registry
//
// Registry holds the configured providers and resolves a "provider/model"
// config string (ParseModelString) to a concrete types.Model:
//
//	registry, err := InitializeProviders(ctx, cfg)
//	model, err := registry.DefaultModel()
//
// InitializeProviders reads cfg.Provider["anthropic"] for an API key and
// base URL override, falling back to the ANTHROPIC_API_KEY environment
// variable.
//
// # Streaming completions
//
//	stream, err := provider.CreateCompletion(ctx, &CompletionRequest{
//	    Messages:  messages,
//	    Tools:     tools,
//	    MaxTokens: 4096,
//	})
//	for {
//	    msg, err := stream.Recv()
//	    if err != nil {
//	        break
//	    }
//	    // consume msg
//	}
//	stream.Close()
//
// # Tool calling
//
// ConvertToEinoTools converts the Worker's JSON-schema tool definitions
// into Eino's schema.ToolInfo for binding to a chat model.
package provider
