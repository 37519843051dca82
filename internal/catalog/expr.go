package catalog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/TimurManjosov/pawswipe/internal/deck"
)

// ErrInvalidExpr is returned when a filter's CEL expression does not compile
// or does not evaluate to a bool.
var ErrInvalidExpr = errors.New("invalid filter: bad expression")

var celEnv = sync.OnceValues(func() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("tags", cel.ListType(cel.StringType)),
		cel.Variable("images", cel.ListType(cel.StringType)),
		cel.Variable("attributes", cel.MapType(cel.StringType, cel.StringType)),
	)
})

// compileExpr turns a CEL source such as
//
//	attributes.species == "dog" && "calm" in tags
//
// into a reusable program.
func compileExpr(src string) (cel.Program, error) {
	env, err := celEnv()
	if err != nil {
		return nil, fmt.Errorf("cel environment: %w", err)
	}
	ast, iss := env.Compile(src)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpr, iss.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("%w: result type is %s, want bool", ErrInvalidExpr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpr, err)
	}
	return prg, nil
}

func evalExpr(prg cel.Program, c deck.Candidate) (bool, error) {
	attrs := c.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	out, _, err := prg.Eval(map[string]any{
		"id":         c.ID,
		"name":       c.Name,
		"tags":       nonNil(c.Tags),
		"images":     nonNil(c.Images),
		"attributes": attrs,
	})
	if err != nil {
		// Missing map keys surface as evaluation errors; treat them as no match.
		return false, nil
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: non-bool result %v", ErrInvalidExpr, out.Value())
	}
	return b, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
