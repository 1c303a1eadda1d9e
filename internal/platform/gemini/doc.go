// Package gemini provides an implementation of the generation.ArticleGenerator
// interface that uses Google's Gemini API to write caregiver education articles.
//
// This package is an infrastructure adapter: it translates a de-identified
// screening context into a Gemini request and the structured JSON reply into a
// domain.EducationArticle.
//
// Key components:
//
// 1. Generator:
//   - Implements generation.ArticleGenerator
//   - Sends the request with a system instruction and a JSON response schema
//   - Logs token usage for every successful call
//
// 2. Throttling:
//   - A token-bucket limiter (golang.org/x/time/rate) caps requests per minute
//   - A weighted semaphore (golang.org/x/sync/semaphore) caps in-flight calls
//
// 3. Error Handling:
//   - Retries transient failures with exponential backoff and jitter
//   - Maps safety blocks and malformed replies to generation sentinels
package gemini
