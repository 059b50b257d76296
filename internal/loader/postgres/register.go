package postgres

import (
	"github.com/nucleus/migrate-core/internal/loader"
	"github.com/nucleus/migrate-core/internal/model"
)

// init registers the postgres loader factory.
func init() {
	loader.Register("postgres.table", func(step model.Step) (loader.Loader, error) {
		return New(step)
	})
}
