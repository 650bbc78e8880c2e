package application

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"shopgrid/internal/service/order/domain"
)

// AdmissionPolicy guards order submission with a configurable CEL expression
// evaluated before the order is persisted. The expression sees the
// candidate order as plain variables and must evaluate to a bool; false
// rejects the submission as a validation failure.
//
// Example: "total_amount <= 10000.0 && item_count <= 20"
type AdmissionPolicy struct {
	program cel.Program
	source  string
}

// NewAdmissionPolicy compiles the expression. An empty expression yields a
// policy that admits everything.
func NewAdmissionPolicy(expr string) (*AdmissionPolicy, error) {
	if expr == "" {
		return &AdmissionPolicy{}, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("total_amount", cel.DoubleType),
		cel.Variable("item_count", cel.IntType),
		cel.Variable("total_quantity", cel.IntType),
		cel.Variable("owner_id", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("build policy environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile admission policy %q: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("admission policy %q must evaluate to bool", expr)
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("plan admission policy %q: %w", expr, err)
	}
	return &AdmissionPolicy{program: program, source: expr}, nil
}

// Admit evaluates the policy against the candidate order.
func (p *AdmissionPolicy) Admit(order *domain.Order) error {
	if p == nil || p.program == nil {
		return nil
	}

	totalQty := 0
	for _, item := range order.Items {
		totalQty += item.Quantity
	}

	out, _, err := p.program.Eval(map[string]any{
		"total_amount":   order.TotalAmount,
		"item_count":     len(order.Items),
		"total_quantity": totalQty,
		"owner_id":       order.OwnerID,
	})
	if err != nil {
		return fmt.Errorf("evaluate admission policy: %w", err)
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		return fmt.Errorf("admission policy returned %T, want bool", out.Value())
	}
	if !allowed {
		return domain.Validationf("order rejected by admission policy %q", p.source)
	}
	return nil
}
