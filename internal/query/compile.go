package query

import (
	"fmt"
	"strings"
)

const baseAlias = "b"

// compiled is the executable form of a pipeline: one page statement, an
// optional count statement sharing the same predicate, and the ordered
// output keys the executor scans rows into.
type compiled struct {
	sql       string
	args      []any
	countSQL  string
	countArgs []any
	outputs   []string
}

func (p *Pipeline) compile() (*compiled, error) {
	base, err := p.schema.collection(p.from)
	if err != nil {
		return nil, err
	}

	lookups := make([]*lookup, len(p.lookups))
	byAs := make(map[string]*lookup, len(p.lookups))
	for i := range p.lookups {
		lk := p.lookups[i]
		lk.alias = fmt.Sprintf("j%d", i+1)
		lookups[i] = &lk
		if lk.mode == lookupDoc {
			byAs[lk.as] = lookups[i]
		}
	}

	// Children of a doc lookup nest inside their parent's sub-document and
	// never appear as top-level outputs.
	children := make(map[string][]*lookup)
	for _, lk := range lookups {
		if lk.mode == lookupDoc && strings.Contains(lk.as, ".") {
			parent := lk.as[:strings.Index(lk.as, ".")]
			if _, ok := byAs[parent]; !ok {
				return nil, fmt.Errorf("%w: lookup parent %s", ErrUnknownField, parent)
			}
			children[parent] = append(children[parent], lk)
		}
	}

	localExpr := func(local string) (string, error) {
		if prefix, field, ok := strings.Cut(local, "."); ok {
			parent, found := byAs[prefix]
			if !found {
				return "", fmt.Errorf("%w: lookup reference %s", ErrUnknownField, local)
			}
			from, err := p.schema.collection(parent.from)
			if err != nil {
				return "", err
			}
			col, err := from.column(field)
			if err != nil {
				return "", err
			}
			return parent.alias + "." + col, nil
		}
		col, err := base.column(local)
		if err != nil {
			return "", err
		}
		return baseAlias + "." + col, nil
	}

	var joins []string
	for _, lk := range lookups {
		if lk.mode != lookupDoc && lk.mode != lookupFields {
			continue
		}
		from, err := p.schema.collection(lk.from)
		if err != nil {
			return nil, err
		}
		foreignCol, err := from.column(lk.foreign)
		if err != nil {
			return nil, err
		}
		local, err := localExpr(lk.local)
		if err != nil {
			return nil, err
		}
		joins = append(joins, fmt.Sprintf("LEFT JOIN %s %s ON %s.%s = %s",
			from.table, lk.alias, lk.alias, foreignCol, local))
	}

	var selectArgs []any
	addSelectArg := func(v any) string {
		selectArgs = append(selectArgs, v)
		return fmt.Sprintf("$%d", len(selectArgs))
	}

	var buildDoc func(lk *lookup) (string, error)
	buildDoc = func(lk *lookup) (string, error) {
		from, err := p.schema.collection(lk.from)
		if err != nil {
			return "", err
		}
		foreignCol, err := from.column(lk.foreign)
		if err != nil {
			return "", err
		}
		var pairs []string
		for _, f := range lk.fields {
			col, err := from.column(f)
			if err != nil {
				return "", err
			}
			pairs = append(pairs, fmt.Sprintf("'%s', %s.%s", f, lk.alias, col))
		}
		for _, child := range children[lk.as] {
			childExpr, err := buildDoc(child)
			if err != nil {
				return "", err
			}
			key := child.as[strings.Index(child.as, ".")+1:]
			pairs = append(pairs, fmt.Sprintf("'%s', %s", key, childExpr))
		}
		return fmt.Sprintf("CASE WHEN %s.%s IS NULL THEN NULL ELSE jsonb_build_object(%s) END",
			lk.alias, foreignCol, strings.Join(pairs, ", ")), nil
	}

	buildLookupExpr := func(lk *lookup) (string, string, error) {
		switch lk.mode {
		case lookupDoc:
			expr, err := buildDoc(lk)
			return lk.as, expr, err
		case lookupCount, lookupExists:
			from, err := p.schema.collection(lk.from)
			if err != nil {
				return "", "", err
			}
			foreignCol, err := from.column(lk.foreign)
			if err != nil {
				return "", "", err
			}
			local, err := localExpr(lk.local)
			if err != nil {
				return "", "", err
			}
			if lk.mode == lookupCount {
				return lk.as, fmt.Sprintf("(SELECT count(*) FROM %s t WHERE t.%s = %s)",
					from.table, foreignCol, local), nil
			}
			clauses := []string{fmt.Sprintf("t.%s = %s", foreignCol, local)}
			for _, eq := range lk.eqs {
				col, err := from.column(eq.Field)
				if err != nil {
					return "", "", err
				}
				clauses = append(clauses, fmt.Sprintf("t.%s = %s", col, addSelectArg(eq.Value)))
			}
			return lk.as, fmt.Sprintf("EXISTS (SELECT 1 FROM %s t WHERE %s)",
				from.table, strings.Join(clauses, " AND ")), nil
		}
		return "", "", nil
	}

	// Assemble the select list: projected base fields first, then lookup
	// outputs in declaration order. The reshape stage, when present, is the
	// allow-list for both.
	type selection struct {
		key  string
		expr string
	}
	var selections []selection

	addBaseField := func(f string) error {
		col, err := base.column(f)
		if err != nil {
			return err
		}
		selections = append(selections, selection{key: f, expr: baseAlias + "." + col})
		return nil
	}

	topLevelKeys := make(map[string]bool)
	for _, lk := range lookups {
		switch lk.mode {
		case lookupDoc:
			if !strings.Contains(lk.as, ".") {
				topLevelKeys[lk.as] = true
			}
		case lookupCount, lookupExists:
			topLevelKeys[lk.as] = true
		case lookupFields:
			for _, f := range lk.fields {
				topLevelKeys[f] = true
			}
		}
	}

	included := func(key string) bool {
		if !p.hasReshape {
			return true
		}
		for _, f := range p.reshape {
			if f == key {
				return true
			}
		}
		return false
	}

	if p.hasReshape {
		for _, f := range p.reshape {
			if topLevelKeys[f] {
				continue
			}
			if _, err := base.column(f); err != nil {
				return nil, err
			}
		}
	}

	for _, f := range base.Fields() {
		if !included(f) {
			continue
		}
		if err := addBaseField(f); err != nil {
			return nil, err
		}
	}

	for _, lk := range lookups {
		if lk.mode == lookupDoc && strings.Contains(lk.as, ".") {
			continue
		}
		if lk.mode == lookupFields {
			from, err := p.schema.collection(lk.from)
			if err != nil {
				return nil, err
			}
			for _, f := range lk.fields {
				if !included(f) {
					continue
				}
				col, err := from.column(f)
				if err != nil {
					return nil, err
				}
				selections = append(selections, selection{key: f, expr: lk.alias + "." + col})
			}
			continue
		}
		if !included(lk.as) {
			continue
		}
		key, expr, err := buildLookupExpr(lk)
		if err != nil {
			return nil, err
		}
		selections = append(selections, selection{key: key, expr: expr})
	}

	if p.rootAs != "" && !topLevelKeys[p.rootAs] {
		return nil, fmt.Errorf("%w: replace root %s", ErrUnknownField, p.rootAs)
	}

	buildWhere := func(offset int) (string, []any, error) {
		var clauses []string
		var args []any
		next := func(v any) string {
			args = append(args, v)
			return fmt.Sprintf("$%d", offset+len(args))
		}
		for _, c := range p.conds {
			switch c.kind {
			case condEq:
				col, err := base.column(c.field)
				if err != nil {
					return "", nil, err
				}
				clauses = append(clauses, fmt.Sprintf("%s.%s = %s", baseAlias, col, next(c.value)))
			case condNotNull:
				col, err := base.column(c.field)
				if err != nil {
					return "", nil, err
				}
				clauses = append(clauses, fmt.Sprintf("%s.%s IS NOT NULL", baseAlias, col))
			case condText:
				pattern := "%" + escapeLike(c.value.(string)) + "%"
				ph := next(pattern)
				var ors []string
				for _, f := range c.fields {
					col, err := base.column(f)
					if err != nil {
						return "", nil, err
					}
					ors = append(ors, fmt.Sprintf("%s.%s ILIKE %s", baseAlias, col, ph))
				}
				clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
			}
		}
		if len(clauses) == 0 {
			return "", nil, nil
		}
		return " WHERE " + strings.Join(clauses, " AND "), args, nil
	}

	where, whereArgs, err := buildWhere(len(selectArgs))
	if err != nil {
		return nil, err
	}

	orderBy, err := p.orderClause(base)
	if err != nil {
		return nil, err
	}

	exprs := make([]string, len(selections))
	outputs := make([]string, len(selections))
	for i, s := range selections {
		exprs[i] = s.expr
		outputs[i] = s.key
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(exprs, ", "))
	sb.WriteString(fmt.Sprintf(" FROM %s %s", base.table, baseAlias))
	if len(joins) > 0 {
		sb.WriteString(" ")
		sb.WriteString(strings.Join(joins, " "))
	}
	sb.WriteString(where)
	sb.WriteString(orderBy)

	args := append(append([]any{}, selectArgs...), whereArgs...)

	c := &compiled{outputs: outputs}

	if p.paginated {
		sb.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", p.limit, (p.page-1)*p.limit))

		countWhere, countArgs, err := buildWhere(0)
		if err != nil {
			return nil, err
		}
		c.countSQL = fmt.Sprintf("SELECT count(*) FROM %s %s%s", base.table, baseAlias, countWhere)
		c.countArgs = countArgs
	}

	c.sql = sb.String()
	c.args = args
	return c, nil
}

func (p *Pipeline) orderClause(base *Collection) (string, error) {
	field := p.sortField
	if !p.hasSort {
		if _, err := base.column("createdAt"); err != nil {
			return "", nil
		}
		field = "createdAt"
	}
	col, err := base.column(field)
	if err != nil {
		return "", err
	}
	dir := "DESC"
	if p.hasSort && p.sortDir == Ascending {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s.%s %s", baseAlias, col, dir), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
