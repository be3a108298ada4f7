// Package enhance implements the LLM backend client for text rewriting
// and title generation. Enhancement is best-effort: any backend failure
// degrades to returning the unmodified input so note creation never
// depends on LLM availability.
package enhance
