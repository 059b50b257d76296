package phase

import (
	"context"
	"fmt"

	"github.com/nucleus/migrate-core/internal/model"
)

// init registers the reference processors. Real format adapters live in
// their own packages and register the same way.
func init() {
	Register("extract.inline", newInlineExtractor)
	Register("transform.rename", newRenameTransform)
}

// inlineExtractor materializes rows declared directly in step parameters.
// Useful for fixtures, previews, and small seed datasets.
type inlineExtractor struct {
	columns []string
	rows    []model.Row
}

func newInlineExtractor(step model.Step) (Processor, error) {
	ex := &inlineExtractor{}
	if cols, ok := step.Params["columns"].([]any); ok {
		for _, c := range cols {
			ex.columns = append(ex.columns, fmt.Sprint(c))
		}
	}
	rows, ok := step.Params["rows"].([]any)
	if !ok {
		return nil, fmt.Errorf("extract.inline: rows parameter is required")
	}
	for i, raw := range rows {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("extract.inline: row %d is not a mapping", i)
		}
		row := make(model.Row, len(m))
		for k, v := range m {
			row[k] = v
		}
		ex.rows = append(ex.rows, row)
	}
	return ex, nil
}

func (e *inlineExtractor) Process(ctx context.Context, state *model.Table) (*model.Table, error) {
	if err := ctx.Err(); err != nil {
		return state, err
	}
	out := model.NewTable(e.columns...)
	for _, row := range e.rows {
		out.Append(row.Clone())
	}
	return out, nil
}

// renameTransform renames fields according to a mapping parameter.
type renameTransform struct {
	mapping map[string]string
}

func newRenameTransform(step model.Step) (Processor, error) {
	raw, ok := step.Params["mapping"].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("transform.rename: mapping parameter is required")
	}
	mapping := make(map[string]string, len(raw))
	for from, to := range raw {
		mapping[from] = fmt.Sprint(to)
	}
	return &renameTransform{mapping: mapping}, nil
}

func (t *renameTransform) Process(ctx context.Context, state *model.Table) (*model.Table, error) {
	if err := ctx.Err(); err != nil {
		return state, err
	}
	if state == nil {
		return nil, fmt.Errorf("transform.rename: no state to transform")
	}
	out := model.NewTable()
	for _, col := range state.Columns {
		if to, ok := t.mapping[col]; ok {
			out.Columns = append(out.Columns, to)
			continue
		}
		out.Columns = append(out.Columns, col)
	}
	for _, row := range state.Rows {
		next := make(model.Row, len(row))
		for k, v := range row {
			if to, ok := t.mapping[k]; ok && !model.IsMeta(k) {
				next[to] = v
				continue
			}
			next[k] = v
		}
		out.Rows = append(out.Rows, next)
	}
	return out, nil
}
