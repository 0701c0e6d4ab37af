package ingest

import "fmt"

// FetchError records a feed that could not be fetched or parsed. It never
// aborts a run.
type FetchError struct {
	Feed string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Feed, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IndexWriteError records an article whose index write still failed after
// all retries.
type IndexWriteError struct {
	Feed      string
	ArticleID string
	Err       error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("index %s: %v", e.ArticleID, e.Err)
}

func (e *IndexWriteError) Unwrap() error { return e.Err }
