package dataverse

import (
	"net/url"
	"strconv"
	"strings"
)

// QueryParams holds the OData system query options accepted by collection
// endpoints. Zero values are omitted from the encoded query.
type QueryParams struct {
	Select  []string
	Filter  string
	OrderBy []string
	Expand  string
	Top     int
	Count   bool
}

// NewQueryParams creates an empty set of query parameters.
func NewQueryParams() *QueryParams {
	return &QueryParams{}
}

// WithSelect adds columns to the $select option.
func (q *QueryParams) WithSelect(columns ...string) *QueryParams {
	q.Select = append(q.Select, columns...)

	return q
}

// WithFilter sets the $filter option.
func (q *QueryParams) WithFilter(filter string) *QueryParams {
	q.Filter = filter

	return q
}

// WithOrderBy adds clauses to the $orderby option.
func (q *QueryParams) WithOrderBy(clauses ...string) *QueryParams {
	q.OrderBy = append(q.OrderBy, clauses...)

	return q
}

// WithExpand sets the $expand option.
func (q *QueryParams) WithExpand(expand string) *QueryParams {
	q.Expand = expand

	return q
}

// WithTop sets the $top option.
func (q *QueryParams) WithTop(top int) *QueryParams {
	q.Top = top

	return q
}

// ToValues encodes the parameters as URL query values.
func (q *QueryParams) ToValues() url.Values {
	values := url.Values{}

	if len(q.Select) > 0 {
		values.Set("$select", strings.Join(q.Select, ","))
	}

	if q.Filter != "" {
		values.Set("$filter", q.Filter)
	}

	if len(q.OrderBy) > 0 {
		values.Set("$orderby", strings.Join(q.OrderBy, ","))
	}

	if q.Expand != "" {
		values.Set("$expand", q.Expand)
	}

	if q.Top > 0 {
		values.Set("$top", strconv.Itoa(q.Top))
	}

	if q.Count {
		values.Set("$count", "true")
	}

	return values
}
