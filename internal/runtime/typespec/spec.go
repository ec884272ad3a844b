// Package typespec compiles the declarative parameter grammar used by
// endpoint registrations and validates call arguments against it.
//
// A type token is one of the primitives (string, number, boolean, integer,
// table), the wildcard "any", a union of primitives ("string|number"), or a
// numeric range ("range[1,5]"). A trailing "?" (or the word "nullable")
// marks the argument optional. Tokens are parsed once at registration;
// validation never re-parses them.
package typespec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Param pairs an argument name with its declarative type token.
type Param struct {
	Name string
	Type string
}

// SpecError reports a malformed declarative type spec. It is returned at
// registration time and must prevent the endpoint from accepting traffic.
type SpecError struct {
	Param  string
	Token  string
	Reason string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("typespec: param %q type %q: %s", e.Param, e.Token, e.Reason)
}

// ValidationError reports a single argument that failed validation. It is a
// per-call, recoverable condition: the dispatcher turns it into a rejected
// call, never a crash.
type ValidationError struct {
	ArgIndex int
	Name     string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("typespec: argument %d (%s): %s", e.ArgIndex, e.Name, e.Reason)
}

type primitive uint8

const (
	primString primitive = iota
	primNumber
	primBoolean
	primInteger
	primTable
)

func (p primitive) String() string {
	switch p {
	case primString:
		return "string"
	case primNumber:
		return "number"
	case primBoolean:
		return "boolean"
	case primInteger:
		return "integer"
	case primTable:
		return "table"
	}
	return "unknown"
}

// descriptor is the resolved form of a type token. Exactly one of wildcard,
// isRange, or prims describes the accepted values; optional additionally
// accepts absence.
type descriptor struct {
	optional bool
	wildcard bool
	isRange  bool
	rangeMin float64
	rangeMax float64
	prims    []primitive
}

type compiledParam struct {
	name string
	desc descriptor
}

// CompiledSpec holds the resolved descriptors for one endpoint. It is
// immutable after Compile and safe for concurrent use.
type CompiledSpec struct {
	params []compiledParam
}

// Compile resolves the declarative parameter list into a CompiledSpec.
// Malformed specs return a *SpecError.
func Compile(params []Param) (*CompiledSpec, error) {
	compiled := make([]compiledParam, 0, len(params))
	for _, p := range params {
		if strings.TrimSpace(p.Name) == "" {
			return nil, &SpecError{Param: p.Name, Token: p.Type, Reason: "argument name is required"}
		}
		desc, err := parseToken(p.Name, p.Type)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledParam{name: p.Name, desc: desc})
	}
	return &CompiledSpec{params: compiled}, nil
}

// MustCompile is Compile but panics on malformed specs. Intended for specs
// defined as literals in code.
func MustCompile(params []Param) *CompiledSpec {
	spec, err := Compile(params)
	if err != nil {
		panic(err)
	}
	return spec
}

// Len returns the number of declared parameters.
func (s *CompiledSpec) Len() int { return len(s.params) }

// Validate checks the argument tuple positionally against the spec. Extra
// trailing arguments are ignored; missing required arguments fail. The first
// failing argument is reported as a *ValidationError.
func (s *CompiledSpec) Validate(args []Value) error {
	for i, p := range s.params {
		v := None
		if i < len(args) {
			v = args[i]
		}
		if reason := p.desc.match(v); reason != "" {
			return &ValidationError{ArgIndex: i, Name: p.name, Reason: reason}
		}
	}
	return nil
}

func parseToken(param, token string) (descriptor, error) {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return descriptor{}, &SpecError{Param: param, Token: token, Reason: "type token is required"}
	}

	var desc descriptor
	for {
		if strings.HasSuffix(tok, "?") {
			desc.optional = true
			tok = strings.TrimSuffix(tok, "?")
			continue
		}
		// The word form of the optional marker, e.g. "string nullable".
		if trimmed, ok := strings.CutSuffix(tok, "nullable"); ok && strings.TrimSpace(trimmed) != "" {
			desc.optional = true
			tok = strings.TrimSpace(trimmed)
			continue
		}
		break
	}
	if tok == "" {
		return descriptor{}, &SpecError{Param: param, Token: token, Reason: "optional marker without a base type"}
	}

	if tok == "any" {
		desc.wildcard = true
		return desc, nil
	}

	if strings.HasPrefix(tok, "range") {
		min, max, err := parseRange(param, token, tok)
		if err != nil {
			return descriptor{}, err
		}
		desc.isRange = true
		desc.rangeMin = min
		desc.rangeMax = max
		return desc, nil
	}

	alternatives := strings.Split(tok, "|")
	for _, alt := range alternatives {
		prim, err := parsePrimitive(param, token, strings.TrimSpace(alt))
		if err != nil {
			return descriptor{}, err
		}
		desc.prims = append(desc.prims, prim)
	}
	return desc, nil
}

func parseRange(param, token, tok string) (float64, float64, error) {
	body, ok := strings.CutPrefix(tok, "range[")
	if !ok || !strings.HasSuffix(body, "]") {
		return 0, 0, &SpecError{Param: param, Token: token, Reason: "range must have the form range[min,max]"}
	}
	body = strings.TrimSuffix(body, "]")

	parts := strings.Split(body, ",")
	if len(parts) != 2 {
		return 0, 0, &SpecError{Param: param, Token: token, Reason: "range needs exactly two bounds"}
	}
	min, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, &SpecError{Param: param, Token: token, Reason: "range lower bound is not numeric"}
	}
	max, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, &SpecError{Param: param, Token: token, Reason: "range upper bound is not numeric"}
	}
	if min > max {
		return 0, 0, &SpecError{Param: param, Token: token, Reason: "range lower bound exceeds upper bound"}
	}
	return min, max, nil
}

func parsePrimitive(param, token, alt string) (primitive, error) {
	switch alt {
	case "string":
		return primString, nil
	case "number":
		return primNumber, nil
	case "boolean":
		return primBoolean, nil
	case "integer":
		return primInteger, nil
	case "table":
		return primTable, nil
	case "any", "":
		return 0, &SpecError{Param: param, Token: token, Reason: fmt.Sprintf("%q is not allowed inside a union", alt)}
	}
	if strings.HasPrefix(alt, "range") {
		return 0, &SpecError{Param: param, Token: token, Reason: "ranges are not allowed inside a union"}
	}
	return 0, &SpecError{Param: param, Token: token, Reason: fmt.Sprintf("unknown type token %q", alt)}
}

// match returns an empty string when the value satisfies the descriptor,
// otherwise a human-readable reason.
func (d descriptor) match(v Value) string {
	if d.wildcard {
		return ""
	}
	if v.IsAbsent() {
		if d.optional {
			return ""
		}
		return "missing required argument"
	}

	if d.isRange {
		num, ok := v.AsNumber()
		if !ok {
			return fmt.Sprintf("expected a number in [%g,%g], got %s", d.rangeMin, d.rangeMax, v.describe())
		}
		if num < d.rangeMin || num > d.rangeMax {
			return fmt.Sprintf("value %g outside range [%g,%g]", num, d.rangeMin, d.rangeMax)
		}
		return ""
	}

	for _, prim := range d.prims {
		if prim.matches(v) {
			return ""
		}
	}
	return fmt.Sprintf("expected %s, got %s", describeAlternatives(d.prims), v.describe())
}

func (p primitive) matches(v Value) bool {
	switch p {
	case primString:
		return v.Kind() == KindString
	case primNumber:
		return v.Kind() == KindNumber
	case primBoolean:
		return v.Kind() == KindBool
	case primInteger:
		num, ok := v.AsNumber()
		return ok && num == math.Trunc(num) && !math.IsInf(num, 0)
	case primTable:
		return v.Kind() == KindTable
	}
	return false
}

func describeAlternatives(prims []primitive) string {
	if len(prims) == 1 {
		return prims[0].String()
	}
	names := make([]string, len(prims))
	for i, p := range prims {
		names[i] = p.String()
	}
	return "one of " + strings.Join(names, "|")
}
