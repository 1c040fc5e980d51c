package store

import (
	"strconv"
	"strings"
)

// Where accumulates AND-ed SQL conditions with positional arguments. Clauses
// use ? for each argument; SQL renumbers them as $1, $2, ...
type Where struct {
	clauses []string
	Args    []any
}

// Add appends a condition and its arguments.
func (w *Where) Add(clause string, args ...any) {
	var b strings.Builder
	n := len(w.Args)
	for _, r := range clause {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	w.clauses = append(w.clauses, b.String())
	w.Args = append(w.Args, args...)
}

// Next is the placeholder for the next argument appended after the filter.
func (w *Where) Next() string { return "$" + strconv.Itoa(len(w.Args)+1) }

// SQL renders " WHERE a AND b", or "" when empty.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}
