// Package generation defines the boundary between the screening service and
// external LLM services that write caregiver education content. The
// ArticleGenerator interface is implemented by the Gemini adapter in
// internal/platform/gemini; the core never depends on a concrete provider.
package generation
