package feed

import (
	"github.com/nucleus/migrate-core/internal/loader"
	"github.com/nucleus/migrate-core/internal/model"
)

// init registers the feed loader factory.
func init() {
	loader.Register("feed.http", func(step model.Step) (loader.Loader, error) {
		return New(step)
	})
}
