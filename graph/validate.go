package graph

import "fmt"

// Rule identifies a validation rule. Rules are checked in declaration
// order; validation reports the first rule broken.
type Rule int

const (
	// RuleInputResolves: every node input must name a graph input or an
	// earlier node's output.
	RuleInputResolves Rule = iota
	// RuleUniqueNames: node names and output tensor names must be
	// globally unique, and outputs must not shadow declared inputs.
	RuleUniqueNames
	// RuleLossBindings: the loss input must name a declared graph
	// output and the loss target a declared training input.
	RuleLossBindings
	// RuleHyperParamRange: every optimizer hyperparameter must lie
	// within its declared range.
	RuleHyperParamRange
	// RuleScheduleAllowed: epoch and batch-size values must be members
	// of their allowed sets.
	RuleScheduleAllowed
)

// String returns the rule name used in error messages.
func (r Rule) String() string {
	switch r {
	case RuleInputResolves:
		return "unresolved-input"
	case RuleUniqueNames:
		return "duplicate-name"
	case RuleLossBindings:
		return "unbound-loss"
	case RuleHyperParamRange:
		return "hyperparameter-range"
	case RuleScheduleAllowed:
		return "schedule-not-allowed"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// ValidationError reports the first rule a graph broke, together with
// the offending node and tensor (or parameter) when applicable.
type ValidationError struct {
	Rule   Rule
	Node   string
	Tensor string
	Param  string
	Detail string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("validation rule %s", e.Rule)
	if e.Node != "" {
		msg += fmt.Sprintf(": node %q", e.Node)
	}
	if e.Tensor != "" {
		msg += fmt.Sprintf(": tensor %q", e.Tensor)
	}
	if e.Param != "" {
		msg += fmt.Sprintf(": parameter %q", e.Param)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Validate checks the five graph rules in order and returns the first
// violation as a *ValidationError, or nil when the spec is sound.
func Validate(s *Spec) error {
	if err := checkInputsResolve(s); err != nil {
		return err
	}
	if err := checkUniqueNames(s); err != nil {
		return err
	}
	if err := checkLossBindings(s); err != nil {
		return err
	}
	if err := checkHyperParams(s); err != nil {
		return err
	}
	return checkSchedules(s)
}

func checkInputsResolve(s *Spec) error {
	available := make(map[string]bool, len(s.Inputs)+len(s.Nodes))
	for _, in := range s.Inputs {
		available[in.Name] = true
	}
	for _, node := range s.Nodes {
		for _, in := range node.Inputs {
			if !available[in] {
				return &ValidationError{
					Rule:   RuleInputResolves,
					Node:   node.Name,
					Tensor: in,
					Detail: "not a graph input and not produced by an earlier node",
				}
			}
		}
		for _, out := range node.Outputs {
			available[out] = true
		}
	}
	return nil
}

func checkUniqueNames(s *Spec) error {
	nodeNames := make(map[string]bool, len(s.Nodes))
	tensors := make(map[string]string, len(s.Nodes))
	for _, in := range s.Inputs {
		tensors[in.Name] = "graph input"
	}
	for _, in := range s.TrainingInputs {
		tensors[in.Name] = "training input"
	}
	for _, node := range s.Nodes {
		if nodeNames[node.Name] {
			return &ValidationError{
				Rule:   RuleUniqueNames,
				Node:   node.Name,
				Detail: "node name already in use",
			}
		}
		nodeNames[node.Name] = true

		for _, out := range node.Outputs {
			if owner, taken := tensors[out]; taken {
				return &ValidationError{
					Rule:   RuleUniqueNames,
					Node:   node.Name,
					Tensor: out,
					Detail: fmt.Sprintf("output name already used by %s", owner),
				}
			}
			tensors[out] = fmt.Sprintf("node %q", node.Name)
		}
	}
	return nil
}

func checkLossBindings(s *Spec) error {
	loss := s.Training.Loss

	declared := func(decls []TensorDecl, name string) bool {
		for _, d := range decls {
			if d.Name == name {
				return true
			}
		}
		return false
	}

	if !declared(s.Outputs, loss.Input) {
		return &ValidationError{
			Rule:   RuleLossBindings,
			Tensor: loss.Input,
			Detail: "loss input is not a declared graph output",
		}
	}
	if !declared(s.TrainingInputs, loss.Target) {
		return &ValidationError{
			Rule:   RuleLossBindings,
			Tensor: loss.Target,
			Detail: "loss target is not a declared training input",
		}
	}
	return nil
}

func checkHyperParams(s *Spec) error {
	for _, np := range s.Training.Optimizer.Params() {
		if !np.Param.InRange() {
			return &ValidationError{
				Rule:  RuleHyperParamRange,
				Param: np.Name,
				Detail: fmt.Sprintf("value %g outside [%g, %g]",
					np.Param.Value, np.Param.Min, np.Param.Max),
			}
		}
	}
	return nil
}

func checkSchedules(s *Spec) error {
	if !s.Training.Epochs.Valid() {
		return &ValidationError{
			Rule:  RuleScheduleAllowed,
			Param: "epochs",
			Detail: fmt.Sprintf("value %d not in allowed set %v",
				s.Training.Epochs.Value, s.Training.Epochs.Allowed),
		}
	}
	if !s.Training.BatchSize.Valid() {
		return &ValidationError{
			Rule:  RuleScheduleAllowed,
			Param: "batch_size",
			Detail: fmt.Sprintf("value %d not in allowed set %v",
				s.Training.BatchSize.Value, s.Training.BatchSize.Allowed),
		}
	}
	return nil
}
