package postgres

import (
	"strconv"
	"strings"
)

// Where builds a parameterised WHERE clause. Each condition uses "?" as the
// placeholder; it is rewritten to the next $n.
type Where struct {
	conds []string
	args  []any
}

func (w *Where) Add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(w.args)), 1))
}

// Raw adds a condition without arguments.
func (w *Where) Raw(cond string) { w.conds = append(w.conds, cond) }

// Arg appends an argument and returns its placeholder, for LIMIT/OFFSET and friends.
func (w *Where) Arg(v any) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

func (w *Where) SQL() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (w *Where) Args() []any { return w.args }

// Like escapes s for use in an ILIKE '%s%' pattern.
func Like(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
