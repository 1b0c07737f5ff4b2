package skill

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/helix-works/skillflow/internal/pathexpr"
)

// stepIDPattern is the allowed step identifier syntax: letters, digits,
// hyphen and underscore only. Embedded whitespace in particular is rejected.
var stepIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// conditionOperators is the allow-list of recognized condition operators.
var conditionOperators = map[string]bool{
	"equals":     true,
	"not_equals": true,
	"contains":   true,
	"gt":         true,
	"lt":         true,
	"gte":        true,
	"lte":        true,
	"exists":     true,
}

// dfs colors for cycle detection.
const (
	colorUnvisited = iota
	colorInProgress
	colorDone
)

// ValidateSteps statically checks a step list for structural correctness.
// Every check contributes its own error/warning entries so an author sees
// all problems in one pass instead of fixing them one at a time. The check
// is a pure function over the given snapshot: validating the same list
// twice yields identical results.
func ValidateSteps(steps []*Step) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}

	position := make(map[string]int, len(steps))
	for i, step := range steps {
		if step.Tool.Name == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("step %d: tool name is required", i+1))
		}
		if step.Tool.Kind != "" && step.Tool.Kind != ToolKindBuiltin && step.Tool.Kind != ToolKindCustom {
			result.Warnings = append(result.Warnings, fmt.Sprintf("step %q: unknown tool kind %q", step.ID, step.Tool.Kind))
		}

		if step.ID == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("step %d: step id is required", i+1))
		} else if !stepIDPattern.MatchString(step.ID) {
			result.Errors = append(result.Errors, fmt.Sprintf("step id %q contains invalid characters (letters, digits, hyphen and underscore only)", step.ID))
		}

		if _, seen := position[step.ID]; seen && step.ID != "" {
			result.Errors = append(result.Errors, fmt.Sprintf("duplicate step id %q", step.ID))
		} else {
			position[step.ID] = i
		}

		if step.Condition != nil && !conditionOperators[step.Condition.Operator] {
			result.Errors = append(result.Errors, fmt.Sprintf("step %q: unknown condition operator %q", step.ID, step.Condition.Operator))
		}

		if step.OnError.Policy == ErrorPolicyRetry && step.OnError.MaxRetries < 1 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("step %q: retry policy without max_retries, a single attempt will be made", step.ID))
		}
	}

	// Dependency edges: B -> A whenever B's input mapping references A's
	// output via a path expression rooted at A's identifier.
	adjacency := make(map[string][]string, len(steps))
	for i, step := range steps {
		for _, ref := range stepReferences(step) {
			refPos, known := position[ref]
			if !known {
				continue
			}
			adjacency[step.ID] = append(adjacency[step.ID], ref)
			if refPos > i {
				result.Warnings = append(result.Warnings, fmt.Sprintf("step %q references step %q which is declared later; steps execute in declared order", step.ID, ref))
			}
		}
	}

	for _, cycle := range findCycles(position, adjacency) {
		result.Errors = append(result.Errors, fmt.Sprintf("circular dependency detected: %s", strings.Join(cycle, " -> ")))
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// stepReferences returns the step identifiers referenced by path
// expressions in the step's input mapping, deduplicated and sorted for
// deterministic output.
func stepReferences(step *Step) []string {
	seen := make(map[string]bool)
	for _, value := range step.Input {
		expr, ok := value.(string)
		if !ok || !pathexpr.IsExpression(expr) {
			continue
		}
		root := pathexpr.RootSegment(expr)
		if root == "" || root == "input" {
			continue
		}
		seen[root] = true
	}

	refs := make([]string, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// findCycles runs a three-color depth-first search over the dependency
// graph and returns one identifier trail per back-edge found. Steps are
// visited in declared order so reported cycles are deterministic.
func findCycles(position map[string]int, adjacency map[string][]string) [][]string {
	ids := make([]string, 0, len(position))
	for id := range position {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return position[ids[i]] < position[ids[j]] })

	color := make(map[string]int, len(ids))
	var cycles [][]string
	var stack []string

	var visit func(id string)
	visit = func(id string) {
		color[id] = colorInProgress
		stack = append(stack, id)

		for _, dep := range adjacency[id] {
			switch color[dep] {
			case colorInProgress:
				// Back-edge: report the trail from the first occurrence of
				// dep on the stack back around to it.
				start := 0
				for i, node := range stack {
					if node == dep {
						start = i
						break
					}
				}
				cycle := append(append([]string{}, stack[start:]...), dep)
				cycles = append(cycles, cycle)
			case colorUnvisited:
				visit(dep)
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = colorDone
	}

	for _, id := range ids {
		if color[id] == colorUnvisited {
			visit(id)
		}
	}

	return cycles
}
