// Package tools ships small ready-made groups for demos and wiring tests.
package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	reagent "github.com/Protocol-Lattice/go-reagent"
)

// Echo returns a group with a single tool that repeats its input.
func Echo() reagent.Group {
	return reagent.Group{
		ID:          "Echo",
		Description: "Repeats text back to the caller, unchanged.",
		Tools: []reagent.Tool{
			reagent.NewTool("Echo.say", "Echoes the provided text back to the caller.",
				func(_ context.Context, input string) (string, error) {
					return strings.TrimSpace(input), nil
				}),
		},
	}
}

// Calculator returns a group evaluating basic arithmetic on two operands.
func Calculator() reagent.Group {
	return reagent.Group{
		ID:          "Calculator",
		Description: "Evaluates simple math expressions such as '2 + 2' or '5 * 3'.",
		Tools: []reagent.Tool{
			reagent.NewTool("Calculator.eval",
				"Evaluates one expression in the form '<number> <operator> <number>'.",
				evalExpression),
		},
	}
}

func evalExpression(_ context.Context, input string) (string, error) {
	fields := strings.Fields(input)
	if len(fields) != 3 {
		return "", fmt.Errorf("expected format '<number> <op> <number>'")
	}

	left, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return "", fmt.Errorf("invalid left operand: %w", err)
	}
	right, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return "", fmt.Errorf("invalid right operand: %w", err)
	}

	var result float64
	switch fields[1] {
	case "+":
		result = left + right
	case "-":
		result = left - right
	case "*", "x", "X":
		result = left * right
	case "/":
		if math.Abs(right) < 1e-12 {
			return "", fmt.Errorf("division by zero")
		}
		result = left / right
	default:
		return "", fmt.Errorf("unsupported operator %q", fields[1])
	}
	return strconv.FormatFloat(result, 'f', -1, 64), nil
}

// Clock returns a group reporting the current UTC time.
func Clock() reagent.Group {
	return reagent.Group{
		ID:          "Clock",
		Description: "Returns the current UTC time.",
		Tools: []reagent.Tool{
			reagent.NewTool("Clock.now", "Reports the current UTC time in RFC3339 format.",
				func(context.Context, string) (string, error) {
					return time.Now().UTC().Format(time.RFC3339), nil
				}),
		},
	}
}
