package services

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// ErrArithmetic is returned when an expression cannot be reduced to a finite number.
var ErrArithmetic = errors.New("cannot evaluate arithmetic")

// arithmeticNoise matches every character that is not part of a plain arithmetic expression.
var arithmeticNoise = regexp.MustCompile(`[^0-9+\-*/().\s]`)

// numberLiteral matches integer and decimal literals, including "5." and ".5".
var numberLiteral = regexp.MustCompile(`\d+(\.\d*)?|\.\d+`)

// floatLiterals rewrites every literal as a float so evaluation never uses
// wrapping integer arithmetic.
func floatLiterals(expression string) string {
	return numberLiteral.ReplaceAllStringFunc(expression, func(lit string) string {
		switch {
		case strings.HasPrefix(lit, "."):
			return "0" + lit
		case strings.HasSuffix(lit, "."):
			return lit + "0"
		case !strings.Contains(lit, "."):
			return strings.TrimLeft(lit[:len(lit)-1], "0") + lit[len(lit)-1:] + ".0"
		default:
			return lit
		}
	})
}

// EvaluateArithmetic strips input down to digits, operators, parentheses, dots and
// whitespace, evaluates what remains and formats the number.
// Literals are evaluated as float64. Integral results print without a fractional part.
func EvaluateArithmetic(input string) (string, error) {
	cleaned := strings.TrimSpace(arithmeticNoise.ReplaceAllString(input, ""))
	if cleaned == "" {
		return "", fmt.Errorf("%w: nothing to evaluate", ErrArithmetic)
	}

	out, err := expr.Eval(floatLiterals(cleaned), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArithmetic, err)
	}

	switch v := out.(type) {
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", fmt.Errorf("%w: result is not finite", ErrArithmetic)
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: result %v is not a number", ErrArithmetic, out)
	}
}
