package graph

import (
	"encoding/json"
	"fmt"
)

// LossKind enumerates the supported loss functions.
type LossKind int

const (
	CategoricalCrossEntropy LossKind = iota
	MeanSquaredError
)

// String returns the loss name used in artifacts.
func (k LossKind) String() string {
	switch k {
	case CategoricalCrossEntropy:
		return "categorical_cross_entropy"
	case MeanSquaredError:
		return "mean_squared_error"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// MarshalJSON renders the loss kind by name in JSON artifacts.
func (k LossKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Loss binds a loss function to the tensors it compares: Input must
// resolve to a declared graph output, Target to a declared training
// input.
type Loss struct {
	Kind   LossKind `json:"kind"`
	Input  string   `json:"input"`
	Target string   `json:"target"`
}

// OptimizerKind enumerates the supported optimizers.
type OptimizerKind int

const (
	Adam OptimizerKind = iota
	SGD
)

// String returns the optimizer name used in artifacts.
func (k OptimizerKind) String() string {
	switch k {
	case Adam:
		return "adam"
	case SGD:
		return "sgd"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// MarshalJSON renders the optimizer kind by name in JSON artifacts.
func (k OptimizerKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// HyperParam is a numeric training parameter constrained to [Min, Max].
type HyperParam struct {
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// InRange reports whether Value lies within [Min, Max].
func (p HyperParam) InRange() bool {
	return p.Value >= p.Min && p.Value <= p.Max
}

// IntChoice is an integer training parameter constrained to an allowed
// set of values.
type IntChoice struct {
	Value   int   `json:"value"`
	Allowed []int `json:"allowed"`
}

// Valid reports whether Value is a member of the allowed set.
func (c IntChoice) Valid() bool {
	for _, v := range c.Allowed {
		if v == c.Value {
			return true
		}
	}
	return false
}

// Optimizer holds the optimizer kind and every hyperparameter slot.
// Validation only ranges over the slots the kind actually uses.
type Optimizer struct {
	Kind         OptimizerKind `json:"kind"`
	LearningRate HyperParam    `json:"learning_rate"`
	Beta1        HyperParam    `json:"beta1"`
	Beta2        HyperParam    `json:"beta2"`
	Epsilon      HyperParam    `json:"epsilon"`
	Momentum     HyperParam    `json:"momentum"`
	WeightDecay  HyperParam    `json:"weight_decay"`
}

// NamedParam pairs a hyperparameter with its artifact key for
// validation messages and metadata encoding.
type NamedParam struct {
	Name  string
	Param HyperParam
}

// Params returns the parameters the optimizer kind trains with, in a
// fixed order.
func (o Optimizer) Params() []NamedParam {
	switch o.Kind {
	case Adam:
		return []NamedParam{
			{"learning_rate", o.LearningRate},
			{"beta1", o.Beta1},
			{"beta2", o.Beta2},
			{"epsilon", o.Epsilon},
		}
	case SGD:
		return []NamedParam{
			{"learning_rate", o.LearningRate},
			{"momentum", o.Momentum},
			{"weight_decay", o.WeightDecay},
		}
	default:
		return nil
	}
}

// AdamOptimizer returns the Adam configuration this system trains with:
// learning rate 0.001 capped at 0.3, beta1 0.9 and beta2 0.999 capped
// at 1.0, epsilon fixed to 1e-8.
func AdamOptimizer() Optimizer {
	return Optimizer{
		Kind:         Adam,
		LearningRate: HyperParam{Value: 0.001, Min: 0, Max: 0.3},
		Beta1:        HyperParam{Value: 0.9, Min: 0, Max: 1.0},
		Beta2:        HyperParam{Value: 0.999, Min: 0, Max: 1.0},
		Epsilon:      HyperParam{Value: 1e-8, Min: 0, Max: 1e-8},
	}
}

// SGDOptimizer returns a plain momentum-SGD configuration.
func SGDOptimizer() Optimizer {
	return Optimizer{
		Kind:         SGD,
		LearningRate: HyperParam{Value: 0.01, Min: 0, Max: 1.0},
		Momentum:     HyperParam{Value: 0.9, Min: 0, Max: 1.0},
		WeightDecay:  HyperParam{Value: 0, Min: 0, Max: 1.0},
	}
}

// TrainingConfig is the training side of a Spec: the loss binding, the
// optimizer, the epoch and batch schedules, and the shuffle flag.
type TrainingConfig struct {
	Loss      Loss      `json:"loss"`
	Optimizer Optimizer `json:"optimizer"`
	Epochs    IntChoice `json:"epochs"`
	BatchSize IntChoice `json:"batch_size"`
	Shuffle   bool      `json:"shuffle"`
}

// DefaultTrainingConfig returns the fixed training setup for the digit
// classifier: categorical cross-entropy between output and output_true,
// Adam, 6 epochs, mini-batches of 32, shuffling enabled.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Loss: Loss{
			Kind:   CategoricalCrossEntropy,
			Input:  "output",
			Target: "output_true",
		},
		Optimizer: AdamOptimizer(),
		Epochs:    IntChoice{Value: 6, Allowed: []int{6}},
		BatchSize: IntChoice{Value: 32, Allowed: []int{32}},
		Shuffle:   true,
	}
}
