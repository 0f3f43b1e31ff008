package bms

import (
	"fmt"
	"strconv"
	"strings"
)

// Measurement is the line-protocol measurement every record is written to.
const Measurement = "power"

// Line formats r as an Influx line-protocol record without timestamp:
//
//	power,system=<namespace> field1=v1,field2=v2
//
// Booleans are written as 1/0 and strings are quoted.
func Line(r Record) string {
	var sb strings.Builder
	sb.WriteString(Measurement)
	sb.WriteString(",system=")
	sb.WriteString(string(r.Namespace()))
	sb.WriteByte(' ')
	for i, f := range r.Fields() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(f.Name)
		sb.WriteByte('=')
		sb.WriteString(formatValue(f.Value, true))
	}
	return sb.String()
}

// LiveValue formats a single field for a per-value topic. Strings are not
// quoted.
func LiveValue(f Field) string {
	return formatValue(f.Value, false)
}

func formatValue(v any, quote bool) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case string:
		if !quote {
			return x
		}
		return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(x) + `"`
	}
	return fmt.Sprint(v)
}
