package parser

import (
	"regexp"
	"strings"

	"github.com/dshills/exfor-index/pkg/types"
)

var (
	particlePattern    = regexp.MustCompile(`^[0-9]*[A-Z][A-Z0-9]*$|^0$`)
	elementPattern     = regexp.MustCompile(`^[A-Z]{1,3}$`)
	isomerStatePattern = regexp.MustCompile(`^(G|T|M[0-9]?|L[0-9]?)$`)
	residualPattern    = regexp.MustCompile(`^[A-Z0-9/]+$`)
)

// Operators allowed between the parts of a reaction combination
const combinationOperators = "+-*/="

// parseReactionField parses a REACTION or MONITOR field into measurements
// keyed by pointer
func parseReactionField(lines []line, monitor bool) (*types.ReactionField, error) {
	codes, err := extractCodes(lines, types.ReactionParsingError)
	if err != nil {
		return nil, err
	}

	rf := types.NewReactionField()
	for _, c := range codes {
		expr := strings.ToUpper(c.text[1 : len(c.text)-1])
		if monitor {
			expr = stripHeading(expr)
		}
		m, err := parseMeasurement(expr, monitor)
		if err != nil {
			return nil, err
		}
		rf.Add(c.pointer, m)
	}
	return rf, nil
}

// stripHeading removes a leading data heading such as "(MONIT1)"
func stripHeading(expr string) string {
	if !strings.HasPrefix(expr, "(") {
		return expr
	}
	end := closingParen(expr, 0)
	if end < 0 {
		return expr
	}
	if inner := expr[1:end]; strings.ContainsAny(inner, ",(") {
		return expr
	}
	return expr[end+1:]
}

// parseMeasurement resolves the text between a code's outer parentheses.
// Monitor codes may leave the quantity empty.
func parseMeasurement(expr string, monitor bool) (types.Measurement, error) {
	switch {
	case expr == "":
		return types.Measurement{Kind: types.MeasurementAbsent}, nil
	case expr[0] == '(':
		return parseCombination(expr, monitor)
	}

	reactions, err := parseReaction(expr, monitor)
	if err != nil {
		return types.Measurement{}, err
	}
	kind := types.MeasurementSingle
	if len(reactions) > 1 {
		kind = types.MeasurementIsomerCombination
	}
	return types.Measurement{Kind: kind, Reactions: reactions, Expression: expr}, nil
}

// parseCombination parses "(a)op(b)op..." flattening nested parts in order
func parseCombination(expr string, monitor bool) (types.Measurement, error) {
	var parts []string
	for i := 0; i < len(expr); {
		if expr[i] != '(' {
			return types.Measurement{}, reactionError("expected '(' at offset %d of %q", i, expr)
		}
		end := closingParen(expr, i)
		if end < 0 {
			return types.Measurement{}, reactionError("unbalanced parentheses in %q", expr)
		}
		parts = append(parts, expr[i+1:end])

		i = end + 1
		j := i
		for j < len(expr) && strings.IndexByte(combinationOperators, expr[j]) >= 0 {
			j++
		}
		switch {
		case j == i && j < len(expr):
			return types.Measurement{}, reactionError("missing operator at offset %d of %q", j, expr)
		case j > i && j == len(expr):
			return types.Measurement{}, reactionError("dangling operator in %q", expr)
		}
		i = j
	}

	if len(parts) == 1 {
		return parseMeasurement(parts[0], monitor)
	}

	m := types.Measurement{Kind: types.MeasurementCombination, Expression: expr}
	for _, part := range parts {
		sub, err := parseMeasurement(part, monitor)
		if err != nil {
			return types.Measurement{}, err
		}
		if sub.Kind == types.MeasurementAbsent {
			return types.Measurement{}, reactionError("empty reaction in combination %q", expr)
		}
		m.Reactions = append(m.Reactions, sub.Reactions...)
	}
	return m, nil
}

// parseReaction parses "SF1(SF2,SF3)SF4,SF5,SF6,SF7,SF8,SF9". An isomeric
// residual like "27-CO-58-M+G" yields one reaction per state.
func parseReaction(expr string, monitor bool) ([]types.Reaction, error) {
	open := strings.IndexByte(expr, '(')
	if open <= 0 {
		return nil, reactionError("missing target or process in %q", expr)
	}
	end := closingParen(expr, open)
	if end < 0 {
		return nil, reactionError("unbalanced process in %q", expr)
	}

	target := expr[:open]
	projectile, products, found := strings.Cut(expr[open+1:end], ",")
	if !found {
		return nil, reactionError("process without products in %q", expr)
	}

	sf := strings.Split(expr[end+1:], ",")
	if len(sf) < 3 || len(sf) > 6 {
		return nil, reactionError("expected SF4 to SF9 after process in %q", expr)
	}
	if sf[2] == "" && !monitor {
		return nil, reactionError("missing quantity in %q", expr)
	}

	if err := checkNuclide(target, false); err != nil {
		return nil, err
	}
	if err := checkParticle(projectile); err != nil {
		return nil, err
	}
	productList := strings.Split(products, "+")
	for _, p := range productList {
		if err := checkParticle(p); err != nil {
			return nil, err
		}
	}

	var quantity []string
	for _, q := range sf[1:min(len(sf), 5)] {
		if q != "" {
			quantity = append(quantity, q)
		}
	}

	residuals, err := expandResidual(sf[0])
	if err != nil {
		return nil, err
	}

	reactions := make([]types.Reaction, 0, len(residuals))
	for _, residual := range residuals {
		reactions = append(reactions, types.Reaction{
			Projectile: projectile,
			Target:     target,
			Products:   productList,
			Residual:   residual,
			Quantity:   quantity,
		})
	}
	return reactions, nil
}

// expandResidual returns the residual states named by SF4
func expandResidual(sf4 string) ([]string, error) {
	if !strings.Contains(sf4, "-") {
		if sf4 != "" && !residualPattern.MatchString(sf4) {
			return nil, types.NewEntryError(types.ParticleParsingError, "", "malformed residual %q", sf4)
		}
		return []string{sf4}, nil
	}

	if err := checkNuclide(sf4, true); err != nil {
		return nil, err
	}
	parts := strings.SplitN(sf4, "-", 4)
	if len(parts) < 4 || !strings.ContainsAny(parts[3], "+/") {
		return []string{sf4}, nil
	}

	base := strings.Join(parts[:3], "-")
	var states []string
	for _, state := range strings.FieldsFunc(parts[3], func(r rune) bool { return r == '+' || r == '/' }) {
		if state == "T" {
			states = append(states, base)
		} else {
			states = append(states, base+"-"+state)
		}
	}
	return states, nil
}

// checkNuclide validates "Z-SYM-A[-ISO]". A combined isomer code such as
// "M+G" is accepted only when allowCombined is set.
func checkNuclide(s string, allowCombined bool) error {
	parts := strings.Split(s, "-")
	if len(parts) < 3 || len(parts) > 4 {
		return types.NewEntryError(types.ParticleParsingError, "", "malformed nuclide %q", s)
	}
	if !isDigits(parts[0]) {
		return numberError("charge number %q of %q is not numeric", parts[0], s)
	}
	if !elementPattern.MatchString(parts[1]) {
		return types.NewEntryError(types.ParticleParsingError, "", "malformed element %q in %q", parts[1], s)
	}
	if !isDigits(parts[2]) {
		return numberError("mass number %q of %q is not numeric", parts[2], s)
	}
	if len(parts) == 4 {
		return checkIsomer(parts[3], s, allowCombined)
	}
	return nil
}

func checkIsomer(code, nuclide string, allowCombined bool) error {
	states := []string{code}
	if strings.ContainsAny(code, "+/") {
		if !allowCombined {
			return isomerError("combined isomer code %q not allowed in %q", code, nuclide)
		}
		states = strings.FieldsFunc(code, func(r rune) bool { return r == '+' || r == '/' })
		if len(states) < 2 {
			return isomerError("incomplete isomer code %q in %q", code, nuclide)
		}
	}
	for _, state := range states {
		if !isomerStatePattern.MatchString(state) {
			return isomerError("unknown isomeric state %q in %q", state, nuclide)
		}
	}
	return nil
}

// checkParticle validates a projectile or product code
func checkParticle(s string) error {
	if strings.Contains(s, "-") {
		return checkNuclide(s, false)
	}
	if !particlePattern.MatchString(s) {
		return types.NewEntryError(types.ParticleParsingError, "", "malformed particle %q", s)
	}
	return nil
}

func reactionError(format string, args ...any) error {
	return types.NewEntryError(types.ReactionParsingError, "", format, args...)
}

func isomerError(format string, args ...any) error {
	return types.NewEntryError(types.IsomerMathParsingError, "", format, args...)
}
