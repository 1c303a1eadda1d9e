// Package mocks provides centralized mock implementations for testing.
//
// Each mock uses function fields with fallback default values, so a test sets
// only the behavior it cares about:
//
//	gen := &mocks.MockArticleGenerator{
//	    GenerateArticleFn: func(ctx context.Context, req generation.ArticleRequest) (*domain.EducationArticle, error) {
//	        return nil, generation.ErrTransientFailure
//	    },
//	}
//
// Calls are recorded and safe to inspect from concurrent workers.
package mocks
