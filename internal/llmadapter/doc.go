// Package llmadapter wraps a chat LLM client with the guarantees the
// rebuild engine needs from it: every response either ends with a
// verified sentinel marker or the adapter turns it into a hard
// TruncationDetected failure; a bounded reviewer loop checks structural
// compliance before a response is accepted; each task gets its own
// conversation identity so LLM client caches never mix tasks; and a
// debug replay mode can record and later replay prompts and responses
// without touching the network.
package llmadapter
