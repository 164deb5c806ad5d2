package ranking

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// maxCachedExpressions bounds the compiled program cache. The oldest entry is
// evicted first.
const maxCachedExpressions = 256

var (
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once

	programs = newProgramCache(maxCachedExpressions)
)

// candidateFields declares each candidate field as a typed, qualified
// variable so type errors surface at compile time.
var candidateFields = []cel.EnvOption{
	cel.Variable("candidate.id", cel.StringType),
	cel.Variable("candidate.name", cel.StringType),
	cel.Variable("candidate.score", cel.DoubleType),
	cel.Variable("candidate.distance_km", cel.DoubleType),
	cel.Variable("candidate.has_distance", cel.BoolType),
	cel.Variable("candidate.competent", cel.BoolType),
	cel.Variable("candidate.skills", cel.ListType(cel.StringType)),
	cel.Variable("candidate.tier", cel.StringType),
}

func env() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		opts := append([]cel.EnvOption{cel.CrossTypeNumericComparisons(true)}, candidateFields...)
		celEnv, celEnvErr = cel.NewEnv(opts...)
	})
	return celEnv, celEnvErr
}

// Expression is a compiled boolean filter over a candidate.
//
// Fields available under candidate: id, name, score, distance_km
// (-1 when unknown), has_distance, competent, skills, tier.
//
//	candidate.score >= 60 && candidate.has_distance && candidate.distance_km < 3
//	"plomberie" in candidate.skills
//	candidate.tier == "recommended"
type Expression struct {
	source string
	prg    cel.Program
}

// CompileExpression parses and type-checks src. An expression that does not
// yield a bool is rejected here, before any candidate is seen. Compiled
// programs are cached by source text and are safe for concurrent use.
func CompileExpression(src string) (*Expression, error) {
	if cached, ok := programs.get(src); ok {
		return cached, nil
	}
	e, err := env()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	ast, issues := e.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: expression must return bool, got %s", ErrInvalidExpression, out)
	}
	prg, err := e.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	return programs.add(&Expression{source: src, prg: prg}), nil
}

// String returns the expression source.
func (x *Expression) String() string { return x.source }

// Match evaluates the expression against c. A non-boolean result or a
// runtime failure is reported as ErrInvalidExpression.
func (x *Expression) Match(c ScoredCandidate) (bool, error) {
	out, _, err := x.prg.Eval(activation(c))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("%w: expression must return bool, got %T", ErrInvalidExpression, out.Value())
	}
	return ok, nil
}

func activation(c ScoredCandidate) map[string]any {
	distance := -1.0
	if c.DistanceKm != nil {
		distance = *c.DistanceKm
	}
	skills := c.Technician.Skills
	if skills == nil {
		skills = []string{}
	}
	return map[string]any{
		"candidate.id":           c.Technician.ID,
		"candidate.name":         c.Technician.Name,
		"candidate.score":        c.Score,
		"candidate.distance_km":  distance,
		"candidate.has_distance": c.DistanceKm != nil,
		"candidate.competent":    c.CompetencyMatch,
		"candidate.skills":       skills,
		"candidate.tier":         string(c.Tier()),
	}
}

// programCache keeps at most size compiled expressions, evicting the oldest.
type programCache struct {
	mu    sync.Mutex
	byKey map[string]*list.Element
	order *list.List // front is oldest
	size  int
}

func newProgramCache(size int) *programCache {
	return &programCache{
		byKey: make(map[string]*list.Element, size),
		order: list.New(),
		size:  size,
	}
}

func (c *programCache) get(src string) (*Expression, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.byKey[src]
	if !ok {
		return nil, false
	}
	return el.Value.(*Expression), true
}

// add stores x unless another caller stored the same source first, and
// returns the cached entry.
func (c *programCache) add(x *Expression) *Expression {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.byKey[x.source]; ok {
		return el.Value.(*Expression)
	}
	if c.order.Len() >= c.size {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.byKey, oldest.Value.(*Expression).source)
	}
	c.byKey[x.source] = c.order.PushBack(x)
	return x
}

func (c *programCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
