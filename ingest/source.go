package ingest

import (
	"context"
	"time"
)

// Source fetches raw message text from one channel within a time
// window. The returned text is fed verbatim into the extraction
// prompt; an empty string means nothing new.
type Source interface {
	Name() string
	Fetch(ctx context.Context, after, before time.Time) (string, error)
}
