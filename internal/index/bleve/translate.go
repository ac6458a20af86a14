package bleve

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/Frischifrisch/mediathekviewweb/internal/query"
)

var inclusive = true

// translate converts a compiled query tree into a bleve query.
func translate(body query.Body) (bquery.Query, error) {
	switch q := body.(type) {
	case query.TextMatch:
		return translateTextMatch(q), nil
	case query.Range:
		return translateRange(q), nil
	case query.Bool:
		return translateBool(q)
	default:
		return nil, fmt.Errorf("unsupported query node %T", body)
	}
}

// translateTextMatch builds one match query per target field. Any field
// may satisfy the segment, so multiple fields form a disjunction.
func translateTextMatch(q query.TextMatch) bquery.Query {
	matches := make([]bquery.Query, 0, len(q.Fields()))
	for _, f := range q.Fields() {
		m := bleve.NewMatchQuery(q.Text())
		m.SetField(string(f))
		m.SetOperator(matchOperator(q.Operator()))
		matches = append(matches, m)
	}
	if len(matches) == 1 {
		return matches[0]
	}
	return bleve.NewDisjunctionQuery(matches...)
}

func matchOperator(op query.Operator) bquery.MatchQueryOperator {
	if op == query.OperatorOr {
		return bquery.MatchQueryOperatorOr
	}
	return bquery.MatchQueryOperatorAnd
}

func translateRange(q query.Range) bquery.Query {
	r := bleve.NewNumericRangeInclusiveQuery(q.Min(), q.Max(), &inclusive, &inclusive)
	r.SetField(string(q.Field()))
	return r
}

func translateBool(q query.Bool) (bquery.Query, error) {
	b := bleve.NewBooleanQuery()
	positive := false
	for _, c := range q.Must() {
		t, err := translate(c)
		if err != nil {
			return nil, err
		}
		b.AddMust(t)
		positive = true
	}
	for _, c := range q.Should() {
		t, err := translate(c)
		if err != nil {
			return nil, err
		}
		b.AddShould(t)
		positive = true
	}
	for _, c := range q.MustNot() {
		t, err := translate(c)
		if err != nil {
			return nil, err
		}
		b.AddMustNot(t)
	}
	if !positive {
		// Pure negations still need a positive side to subtract from.
		b.AddMust(bleve.NewMatchAllQuery())
	}
	return b, nil
}
