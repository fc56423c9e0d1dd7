// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package strapi

import (
	"net/url"
	"strconv"
	"strings"
)

// Query builds the Strapi v4 query-string dialect: bracketed filter
// operators, indexed field projections, nested populate forms and
// pagination. Relation paths are written with dots ("user_topic.profile.id")
// and expand to bracket chains ("filters[user_topic][profile][id][$eq]").
type Query struct {
	values   url.Values
	fieldIdx int
}

// NewQuery returns an empty query builder.
func NewQuery() *Query {
	return &Query{values: url.Values{}}
}

// filterKey expands "filters" + a dotted path + an operator into the
// bracketed form, e.g. ("user.email", "$eq") -> filters[user][email][$eq].
func filterKey(path, op string) string {
	var b strings.Builder
	b.WriteString("filters")
	for _, seg := range strings.Split(path, ".") {
		b.WriteString("[")
		b.WriteString(seg)
		b.WriteString("]")
	}
	b.WriteString("[")
	b.WriteString(op)
	b.WriteString("]")
	return b.String()
}

// Eq adds an exact-match filter.
func (q *Query) Eq(path, value string) *Query {
	q.values.Set(filterKey(path, "$eq"), value)
	return q
}

// Gt adds a greater-than filter.
func (q *Query) Gt(path, value string) *Query {
	q.values.Set(filterKey(path, "$gt"), value)
	return q
}

// Contains adds a substring filter.
func (q *Query) Contains(path, value string) *Query {
	q.values.Set(filterKey(path, "$contains"), value)
	return q
}

// In adds a set-membership filter with one indexed entry per value.
func (q *Query) In(path string, values []string) *Query {
	key := filterKey(path, "$in")
	for i, v := range values {
		q.values.Set(key+"["+strconv.Itoa(i)+"]", v)
	}
	return q
}

// Null adds a null-check filter.
func (q *Query) Null(path string, isNull bool) *Query {
	q.values.Set(filterKey(path, "$null"), strconv.FormatBool(isNull))
	return q
}

// AndEq adds an exact-match filter inside an indexed $and group,
// e.g. (0, "email", v) -> filters[$and][0][email][$eq]=v.
func (q *Query) AndEq(index int, path, value string) *Query {
	return q.Eq("$and."+strconv.Itoa(index)+"."+path, value)
}

// UpdatedSince filters to records modified after the given timestamp.
// Used for incremental client syncs.
func (q *Query) UpdatedSince(ts string) *Query {
	return q.Gt("updatedAt", ts)
}

// Fields appends indexed field projections: fields[0]=a, fields[1]=b, ...
// Repeated calls continue the index sequence.
func (q *Query) Fields(names ...string) *Query {
	for _, name := range names {
		q.values.Set("fields["+strconv.Itoa(q.fieldIdx)+"]", name)
		q.fieldIdx++
	}
	return q
}

// Populate sets the flat populate form: populate=* or populate=<relation>.
func (q *Query) Populate(value string) *Query {
	q.values.Set("populate", value)
	return q
}

// PopulateList sets indexed populate entries: populate[0]=a, populate[1]=b.
// Entries may use dotted deep paths ("students.user").
func (q *Query) PopulateList(names ...string) *Query {
	for i, name := range names {
		q.values.Set("populate["+strconv.Itoa(i)+"]", name)
	}
	return q
}

// PopulateFields populates a relation with a field projection:
// populate[<rel>][fields][i]=name.
func (q *Query) PopulateFields(rel string, names ...string) *Query {
	for i, name := range names {
		q.values.Set("populate["+rel+"][fields]["+strconv.Itoa(i)+"]", name)
	}
	return q
}

// PopulateFilterEq filters the populated relation itself:
// populate[<rel>][filters][<path>][$eq]=value.
func (q *Query) PopulateFilterEq(rel, path, value string) *Query {
	var b strings.Builder
	b.WriteString("populate[")
	b.WriteString(rel)
	b.WriteString("][filters]")
	for _, seg := range strings.Split(path, ".") {
		b.WriteString("[")
		b.WriteString(seg)
		b.WriteString("]")
	}
	b.WriteString("[$eq]")
	q.values.Set(b.String(), value)
	return q
}

// Limit sets pagination[limit].
func (q *Query) Limit(n int) *Query {
	q.values.Set("pagination[limit]", strconv.Itoa(n))
	return q
}

// Set adds a raw parameter unchanged.
func (q *Query) Set(key, value string) *Query {
	q.values.Set(key, value)
	return q
}

// Merge copies all parameters from src, preserving keys verbatim. Used to
// pass through inbound query parameters the middleware does not interpret.
func (q *Query) Merge(src url.Values) *Query {
	for key, vals := range src {
		for _, v := range vals {
			q.values.Add(key, v)
		}
	}
	return q
}

// Values returns the accumulated parameters.
func (q *Query) Values() url.Values {
	return q.values
}

// Encode returns the URL-encoded query string.
func (q *Query) Encode() string {
	return q.values.Encode()
}
