// Package validate checks request structs against `validate` struct tags.
//
// Rules, comma separated:
//
//	required        not zero; strings must contain a non-space rune
//	nullable        an empty value skips the remaining rules
//	email           looks like an email address
//	digits=N        exactly N decimal digits
//	min=N / max=N   string length in runes, or numeric value
//	between=lo,hi   string length or numeric value, inclusive
//	gt=N / gte=N    numeric value bounds
//	symbol          contains at least one rune that is neither letter nor digit
//	same=field      equals the sibling whose json name is field
//	in=a|b|c        one of the listed values
//
// Example:
//
//	type Registration struct {
//	    Phone    string `json:"phone"    validate:"required,digits=8"`
//	    Password string `json:"password" validate:"required,between=6,8,symbol"`
//	    Confirm  string `json:"passwordConfirm" validate:"same=password"`
//	}
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Errors maps a field's json name to the first rule it broke.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e[k])
	}
	return strings.Join(msgs, " ")
}

// Struct validates the tagged fields of v. It returns nil when v is valid.
func Struct(v interface{}) Errors {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	errs := Errors{}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		tag := field.Tag.Get("validate")
		if tag == "" {
			continue
		}

		value := rv.Field(i)
		name := jsonName(field)
		rules := splitRules(tag)

		if hasRule(rules, "nullable") && isEmpty(value) {
			continue
		}
		for _, rule := range rules {
			if rule == "nullable" {
				continue
			}
			if msg := check(rule, name, value, rv); msg != "" {
				errs[name] = msg
				break
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

var (
	emailRE  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	digitsRE = regexp.MustCompile(`^[0-9]+$`)
)

func check(rule, field string, v, parent reflect.Value) string {
	key, param, _ := strings.Cut(rule, "=")
	raw := fmt.Sprintf("%v", v.Interface())

	switch key {
	case "required":
		if isEmpty(v) {
			return fmt.Sprintf("El campo %s es obligatorio.", field)
		}
	case "email":
		if !emailRE.MatchString(raw) {
			return fmt.Sprintf("El campo %s debe ser un correo válido.", field)
		}
	case "digits":
		n, _ := strconv.Atoi(param)
		if !digitsRE.MatchString(raw) || len(raw) != n {
			return fmt.Sprintf("El campo %s debe tener %d dígitos.", field, n)
		}
	case "min":
		n := parseFloat(param)
		if numeric(v) && toFloat(v) < n {
			return fmt.Sprintf("El campo %s debe ser al menos %s.", field, param)
		}
		if !numeric(v) && float64(runeLen(raw)) < n {
			return fmt.Sprintf("El campo %s debe tener al menos %s caracteres.", field, param)
		}
	case "max":
		n := parseFloat(param)
		if numeric(v) && toFloat(v) > n {
			return fmt.Sprintf("El campo %s no puede ser mayor que %s.", field, param)
		}
		if !numeric(v) && float64(runeLen(raw)) > n {
			return fmt.Sprintf("El campo %s no puede exceder %s caracteres.", field, param)
		}
	case "between":
		lo, hi, _ := strings.Cut(param, ",")
		l, h := parseFloat(lo), parseFloat(hi)
		if numeric(v) {
			if f := toFloat(v); f < l || f > h {
				return fmt.Sprintf("El campo %s debe estar entre %s y %s.", field, lo, hi)
			}
		} else if n := float64(runeLen(raw)); n < l || n > h {
			return fmt.Sprintf("El campo %s debe tener entre %s y %s caracteres.", field, lo, hi)
		}
	case "gt":
		if toFloat(v) <= parseFloat(param) {
			return fmt.Sprintf("El campo %s debe ser mayor que %s.", field, param)
		}
	case "gte":
		if toFloat(v) < parseFloat(param) {
			return fmt.Sprintf("El campo %s debe ser mayor o igual que %s.", field, param)
		}
	case "symbol":
		for _, r := range raw {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				return ""
			}
		}
		return fmt.Sprintf("El campo %s debe contener al menos un símbolo.", field)
	case "same":
		other, ok := sibling(parent, param)
		if !ok || fmt.Sprintf("%v", other.Interface()) != raw {
			return fmt.Sprintf("El campo %s no coincide con %s.", field, param)
		}
	case "in":
		for _, allowed := range strings.Split(param, "|") {
			if raw == allowed {
				return ""
			}
		}
		return fmt.Sprintf("El valor de %s no es válido.", field)
	}
	return ""
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false
	}
	if numeric(v) {
		return toFloat(v) == 0
	}
	return false
}

func numeric(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	return parseFloat(fmt.Sprintf("%v", v.Interface()))
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func runeLen(s string) int { return len([]rune(s)) }

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	return name
}

func sibling(parent reflect.Value, name string) (reflect.Value, bool) {
	rt := parent.Type()
	for i := 0; i < rt.NumField(); i++ {
		if jsonName(rt.Field(i)) == name {
			return parent.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// splitRules splits on commas, keeping the second bound of between=lo,hi
// attached to its rule.
func splitRules(tag string) []string {
	parts := strings.Split(tag, ",")
	rules := make([]string, 0, len(parts))
	for i := 0; i < len(parts); i++ {
		r := strings.TrimSpace(parts[i])
		if strings.HasPrefix(r, "between=") && !strings.Contains(r, ",") && i+1 < len(parts) {
			r += "," + strings.TrimSpace(parts[i+1])
			i++
		}
		if r != "" {
			rules = append(rules, r)
		}
	}
	return rules
}

func hasRule(rules []string, target string) bool {
	for _, r := range rules {
		if r == target {
			return true
		}
	}
	return false
}
