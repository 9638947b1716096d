package allocation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// maxCents is the magnitude above which a float64 no longer resolves cents;
// such values are returned unrounded.
const maxCents = 1e15

// epsilon is the double precision machine epsilon (2^-52). It biases values
// before rounding so that 0.1+0.2 or 1.005 land on the intended cent.
const epsilon = 2.220446049250313e-16

// Round2 rounds to two decimal places, half up, after an epsilon pre-bias.
// Non-finite input yields 0. Magnitudes of 1e15 and above are returned as-is
// so that scaling can never overflow to infinity.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if math.Abs(v) >= maxCents {
		return v
	}
	r := math.Floor((v+epsilon)*100+0.5) / 100
	if r == 0 {
		// drop negative zero
		return 0
	}
	return r
}

// ToSafeNumber parses a numeric value from arbitrary input. It behaves like a
// permissive parseFloat: the longest numeric prefix of a string is used and
// anything unparsable, NaN or infinite becomes 0.
func ToSafeNumber(v any) float64 {
	var f float64
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int8:
		f = float64(val)
	case int16:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint8:
		f = float64(val)
	case uint16:
		f = float64(val)
	case uint32:
		f = float64(val)
	case uint64:
		f = float64(val)
	case Number:
		f = float64(val)
	case json.Number:
		f = parsePrefix(string(val))
	case string:
		f = parsePrefix(val)
	case []byte:
		f = parsePrefix(string(val))
	case bool:
		return 0
	case fmt.Stringer:
		f = parsePrefix(val.String())
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			f = rv.Float()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			f = float64(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			f = float64(rv.Uint())
		case reflect.String:
			f = parsePrefix(rv.String())
		case reflect.Pointer:
			if rv.IsNil() {
				return 0
			}
			return ToSafeNumber(rv.Elem().Interface())
		default:
			return 0
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// parsePrefix scans sign, digits, fraction and exponent and parses the longest
// valid prefix.
func parsePrefix(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	i := 0
	if s[i] == '+' || s[i] == '-' {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expDigits := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			expDigits++
		}
		if expDigits > 0 {
			end = j
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		// ParseFloat reports ErrRange with ±Inf for overflow
		return 0
	}
	return f
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Number is a float64 that decodes leniently from JSON. Numbers, numeric
// strings, empty strings and null are accepted; anything else decodes to 0.
type Number float64

// Float returns the plain float value.
func (n Number) Float() float64 {
	return float64(n)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = 0
			return nil
		}
		*n = Number(ToSafeNumber(s))
		return nil
	}
	*n = Number(ToSafeNumber(json.Number(data)))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}
