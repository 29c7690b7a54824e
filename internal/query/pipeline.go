package query

// Direction controls sort order for the sort stage.
type Direction int

const (
	// Descending is the default ordering (newest first).
	Descending Direction = iota
	// Ascending sorts oldest first.
	Ascending
)

// Eq is an additional equality constraint applied inside an exists-lookup.
type Eq struct {
	Field string
	Value any
}

type condKind int

const (
	condEq condKind = iota
	condText
	condNotNull
)

type cond struct {
	kind   condKind
	field  string
	fields []string
	value  any
}

type lookupMode int

const (
	lookupDoc lookupMode = iota
	lookupFields
	lookupCount
	lookupExists
)

type lookup struct {
	mode    lookupMode
	as      string // output key; "parent.child" nests into a prior doc lookup
	from    string
	local   string // base field, or "alias.field" referencing a prior doc lookup
	foreign string
	fields  []string
	eqs     []Eq

	alias string // join alias, assigned during compilation
}

// Pipeline is an ordered read query: match, lookups, reshape, sort, paginate.
// Stages are declared through the builder methods and compiled into a single
// SQL statement by the executor. A zero lookup set yields a plain filtered
// read over the base collection.
type Pipeline struct {
	schema *Schema
	from   string

	conds   []cond
	lookups []lookup

	reshape    []string
	hasReshape bool

	rootAs string

	sortField string
	sortDir   Direction
	hasSort   bool

	page      int
	limit     int
	paginated bool
}

// New starts a pipeline over the named collection.
func New(schema *Schema, collection string) *Pipeline {
	return &Pipeline{schema: schema, from: collection}
}

// MatchEq adds an equality predicate on a base-collection field.
func (p *Pipeline) MatchEq(field string, value any) *Pipeline {
	p.conds = append(p.conds, cond{kind: condEq, field: field, value: value})
	return p
}

// MatchText adds a case-insensitive substring predicate combined with OR
// semantics across the given text fields. An empty search term matches
// everything and the stage is skipped.
func (p *Pipeline) MatchText(term string, fields ...string) *Pipeline {
	if term == "" {
		return p
	}
	p.conds = append(p.conds, cond{kind: condText, fields: fields, value: term})
	return p
}

// MatchNotNull requires the named reference field to be present.
func (p *Pipeline) MatchNotNull(field string) *Pipeline {
	p.conds = append(p.conds, cond{kind: condNotNull, field: field})
	return p
}

// LookupDoc attaches a single joined document from another collection under
// the key `as`, projected to the named fields. Left-outer-join semantics: a
// missing match yields null, never an error. `as` may use "parent.child"
// notation to nest inside a previously declared doc lookup, and `local` may
// use "parentAs.field" to join against a previously joined document.
func (p *Pipeline) LookupDoc(as, from, local, foreign string, fields ...string) *Pipeline {
	p.lookups = append(p.lookups, lookup{
		mode: lookupDoc, as: as, from: from, local: local, foreign: foreign, fields: fields,
	})
	return p
}

// LookupFields joins a single document and promotes the projected fields to
// top-level output keys (the flattened form of LookupDoc).
func (p *Pipeline) LookupFields(from, local, foreign string, fields ...string) *Pipeline {
	p.lookups = append(p.lookups, lookup{
		mode: lookupFields, as: "", from: from, local: local, foreign: foreign, fields: fields,
	})
	return p
}

// LookupCount reduces a multi-valued lookup to the number of matching rows,
// emitted under the key `as`.
func (p *Pipeline) LookupCount(as, from, local, foreign string) *Pipeline {
	p.lookups = append(p.lookups, lookup{
		mode: lookupCount, as: as, from: from, local: local, foreign: foreign,
	})
	return p
}

// LookupExists emits a derived boolean under `as`: true when the joined
// collection holds at least one row matching the join plus the extra
// equality constraints (e.g. "is the calling user among the subscribers").
func (p *Pipeline) LookupExists(as, from, local, foreign string, eqs ...Eq) *Pipeline {
	p.lookups = append(p.lookups, lookup{
		mode: lookupExists, as: as, from: from, local: local, foreign: foreign, eqs: eqs,
	})
	return p
}

// Reshape restricts output to the named base fields and lookup keys. It is
// applied after all lookups; outputs not listed are dropped.
func (p *Pipeline) Reshape(fields ...string) *Pipeline {
	p.reshape = fields
	p.hasReshape = true
	return p
}

// ReplaceRoot promotes the named doc-lookup to be the whole output document,
// discarding the base fields (mirrors replacing the root after a join).
func (p *Pipeline) ReplaceRoot(as string) *Pipeline {
	p.rootAs = as
	return p
}

// Sort orders results by a single base-collection field. When no sort stage
// is declared the pipeline defaults to createdAt descending.
func (p *Pipeline) Sort(field string, dir Direction) *Pipeline {
	p.sortField = field
	p.sortDir = dir
	p.hasSort = true
	return p
}

// Paginate requests a 1-based page of the given size. Out-of-range values
// fall back to page 1 and the default size of 10; sizes above 100 are capped.
func (p *Pipeline) Paginate(page, limit int) *Pipeline {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	p.page = page
	p.limit = limit
	p.paginated = true
	return p
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)
