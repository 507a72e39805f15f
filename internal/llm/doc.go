// Package llm obtains usable text from an unreliable completion service.
//
// A Cascade sends the same system and user prompt to an ordered list of
// models, one attempt each. Every response is sanitized and checked by a
// ResponseValidator; the first accepted response wins. When no model
// produces one, the cascade still succeeds with SentinelText so that callers
// never branch on an error:
//
//	cascade := llm.NewCascade(completer, validator, llm.CascadeConfig{
//	    Models:  cfg.LLM.Models,
//	    Timeout: cfg.LLM.Timeout.Duration(),
//	}, logger, m)
//	res := cascade.AskStructured(ctx, systemPrompt, userPrompt)
//
// Two Completer transports are provided: HTTPCompleter speaks the OpenAI
// chat completions protocol directly, LangchainCompleter goes through
// langchaingo.
package llm
