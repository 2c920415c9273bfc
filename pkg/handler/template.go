package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

// Format substitutes {field} placeholders with tracker values.
// "{{" and "}}" produce literal braces. A placeholder naming a key the tracker
// does not hold is a *domain.TemplateError.
func Format(tpl string, tracker domain.Tracker) (string, error) {
	var sb strings.Builder
	sb.Grow(len(tpl))

	for i := 0; i < len(tpl); i++ {
		c := tpl[i]
		switch c {
		case '{':
			if i+1 < len(tpl) && tpl[i+1] == '{' {
				sb.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tpl[i+1:], '}')
			if end < 0 {
				return "", &domain.TemplateError{Key: tpl[i+1:], Template: tpl}
			}
			key := tpl[i+1 : i+1+end]
			v, ok := tracker[key]
			if !ok {
				return "", &domain.TemplateError{Key: key, Template: tpl}
			}
			sb.WriteString(stringify(v))
			i += end + 1
		case '}':
			if i+1 < len(tpl) && tpl[i+1] == '}' {
				i++
			}
			sb.WriteByte('}')
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
