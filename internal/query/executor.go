package query

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/db"
)

// Document is one pipeline result row keyed by logical field name.
type Document map[string]any

// Page is the paginated result envelope: the item sequence plus totals.
// Requesting a page past the end yields an empty Items with correct totals.
type Page struct {
	Items      []Document `json:"items"`
	TotalItems int64      `json:"totalItems"`
	TotalPages int        `json:"totalPages"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
}

// Executor compiles and runs pipelines against the connection pool. All
// stages execute as a single statement per read; the paginate stage adds a
// count statement sharing the same predicate.
type Executor struct {
	pool db.Pool
}

// NewExecutor constructs an executor over the provided pool.
func NewExecutor(pool db.Pool) *Executor {
	return &Executor{pool: pool}
}

// Find runs a non-paginated pipeline and returns every matching document.
func (e *Executor) Find(ctx context.Context, p *Pipeline) ([]Document, error) {
	c, err := p.compile()
	if err != nil {
		return nil, err
	}

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	docs, err := scanDocuments(ctx, conn, c, p.rootAs)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// FindPage runs a paginated pipeline. The pipeline must carry a paginate
// stage; a missing one is treated as page 1 with the default size.
func (e *Executor) FindPage(ctx context.Context, p *Pipeline) (*Page, error) {
	if !p.paginated {
		p.Paginate(1, defaultPageSize)
	}

	c, err := p.compile()
	if err != nil {
		return nil, err
	}

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var total int64
	if err := conn.QueryRow(ctx, c.countSQL, c.countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	docs, err := scanDocuments(ctx, conn, c, p.rootAs)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(p.limit) - 1) / int64(p.limit))

	return &Page{
		Items:      docs,
		TotalItems: total,
		TotalPages: totalPages,
		Page:       p.page,
		Limit:      p.limit,
	}, nil
}

func scanDocuments(ctx context.Context, conn *pgxpool.Conn, c *compiled, rootAs string) ([]Document, error) {
	rows, err := conn.Query(ctx, c.sql, c.args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read document values: %w", err)
		}

		doc := make(Document, len(c.outputs))
		for i, key := range c.outputs {
			doc[key] = values[i]
		}

		if rootAs != "" {
			sub, _ := doc[rootAs].(map[string]any)
			if sub == nil {
				continue
			}
			doc = Document(sub)
		}

		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return docs, nil
}
