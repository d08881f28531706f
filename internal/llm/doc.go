// Package llm classifies helpdesk tickets with a large language model.
// It supports OpenAI, Anthropic and Gemini, with retry logic and rate limiting
// around a single batch call per group of tickets.
package llm
