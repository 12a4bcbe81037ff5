package compiler

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-neosierra/graph"
)

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Literal renders a predicate value. Strings are single-quoted with backslash and
// quote characters escaped; every other value is emitted as-is.
func Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + quoteEscaper.Replace(x) + "'"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// Name renders a label, relationship type or property key, backquoting it when it is
// not a plain identifier.
func Name(s string) string {
	if graph.IsIdentifier(s) {
		return s
	}
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}
