// Package generation produces the final scoping decision text from an
// assembled evidence package. The prompt builder renders the evidence
// into system and user prompts with an explicit JSON output contract;
// the client sends them to an OpenAI-compatible chat-completions
// endpoint and parses the structured reply. A scripted fake supports
// tests and offline runs.
//
// Generation is deliberately last and deliberately replaceable: every
// signal it consumes (chunks, feedback, prior decisions, the confidence
// assessment) is computed deterministically upstream, so swapping the
// model changes prose quality, not the evidence trail.
package generation
