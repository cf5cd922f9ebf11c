// Package model assembles the declarative configuration of a feed-forward
// binary classifier. It does not train.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tabloom-cli/internal/split"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
)

// ErrNoFeatures is returned when a model is requested for zero input features.
var ErrNoFeatures = errors.New("model needs at least one input feature")

// Activation names a layer's activation function.
type Activation string

const (
	ReLU    Activation = "relu"
	Sigmoid Activation = "sigmoid"
)

// Layer is one fully connected layer.
type Layer struct {
	Units      int        `json:"units" yaml:"units"`
	Activation Activation `json:"activation" yaml:"activation"`
}

// Optimizer holds the optimizer name and its hyperparameters.
type Optimizer struct {
	Name         string  `json:"name" yaml:"name"`
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`
	Beta1        float64 `json:"beta_1" yaml:"beta_1"`
	Beta2        float64 `json:"beta_2" yaml:"beta_2"`
	Epsilon      float64 `json:"epsilon" yaml:"epsilon"`
}

// Adam returns the Adam optimizer with its usual defaults.
func Adam() Optimizer {
	return Optimizer{Name: "adam", LearningRate: 0.001, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-7}
}

const (
	LossBinaryCrossEntropy = "binary_crossentropy"
	MetricAccuracy         = "accuracy"
)

// Spec is an immutable model configuration.
type Spec struct {
	inputWidth int
	layers     []Layer
	optimizer  Optimizer
	loss       string
	metrics    []string
}

// Assemble builds the classifier for n input features:
// Dense(64, relu) -> Dense(32, relu) -> Dense(1, sigmoid), Adam, binary
// cross-entropy, accuracy.
func Assemble(n int) (*Spec, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNoFeatures, n)
	}
	return &Spec{
		inputWidth: n,
		layers: []Layer{
			{Units: 64, Activation: ReLU},
			{Units: 32, Activation: ReLU},
			{Units: 1, Activation: Sigmoid},
		},
		optimizer: Adam(),
		loss:      LossBinaryCrossEntropy,
		metrics:   []string{MetricAccuracy},
	}, nil
}

// FromSplit assembles a model sized to the split's feature count.
func FromSplit(s *split.Split) (*Spec, error) {
	if s == nil {
		return nil, ErrNoFeatures
	}
	return Assemble(s.NumFeatures())
}

func (s *Spec) InputWidth() int      { return s.inputWidth }
func (s *Spec) Optimizer() Optimizer { return s.optimizer }
func (s *Spec) Loss() string         { return s.loss }

// Layers returns a copy of the layer list.
func (s *Spec) Layers() []Layer { return append([]Layer(nil), s.layers...) }

// Metrics returns a copy of the tracked metrics.
func (s *Spec) Metrics() []string { return append([]string(nil), s.metrics...) }

// Output returns the final layer.
func (s *Spec) Output() Layer { return s.layers[len(s.layers)-1] }

// ParamCount returns the number of trainable weights and biases.
func (s *Spec) ParamCount() int {
	total, prev := 0, s.inputWidth
	for _, l := range s.layers {
		total += prev*l.Units + l.Units
		prev = l.Units
	}
	return total
}

// Summary renders a layer table.
func (s *Spec) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-8s %-10s %10s\n", "Layer", "Units", "Activation", "Params")
	fmt.Fprintf(&b, "%-10s %-8d %-10s %10s\n", "input", s.inputWidth, "-", "0")
	prev := s.inputWidth
	for i, l := range s.layers {
		fmt.Fprintf(&b, "%-10s %-8d %-10s %10d\n", fmt.Sprintf("dense_%d", i+1), l.Units, l.Activation, prev*l.Units+l.Units)
		prev = l.Units
	}
	fmt.Fprintf(&b, "Total params: %d\n", s.ParamCount())
	fmt.Fprintf(&b, "Optimizer: %s (lr=%g, beta_1=%g, beta_2=%g, epsilon=%g)\n",
		s.optimizer.Name, s.optimizer.LearningRate, s.optimizer.Beta1, s.optimizer.Beta2, s.optimizer.Epsilon)
	fmt.Fprintf(&b, "Loss: %s\nMetrics: %s\n", s.loss, strings.Join(s.metrics, ", "))
	return b.String()
}

// Document is the serialized form of a Spec.
type Document struct {
	InputWidth int       `json:"input_width" yaml:"input_width"`
	Layers     []Layer   `json:"layers" yaml:"layers"`
	Optimizer  Optimizer `json:"optimizer" yaml:"optimizer"`
	Loss       string    `json:"loss" yaml:"loss"`
	Metrics    []string  `json:"metrics" yaml:"metrics"`
	Params     int       `json:"params" yaml:"params"`
}

// Document returns a detached copy suitable for encoding.
func (s *Spec) Document() Document {
	return Document{
		InputWidth: s.inputWidth,
		Layers:     s.Layers(),
		Optimizer:  s.optimizer,
		Loss:       s.loss,
		Metrics:    s.Metrics(),
		Params:     s.ParamCount(),
	}
}

func (s *Spec) MarshalJSON() ([]byte, error) { return json.Marshal(s.Document()) }

func (s *Spec) MarshalYAML() (any, error) { return s.Document(), nil }

// WriteFile saves the model spec as YAML (.yaml, .yml) or JSON (any other suffix).
func (s *Spec) WriteFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(s)
	default:
		data, err = utils.PrettyJSON(s)
	}
	if err != nil {
		return fmt.Errorf("encode model spec: %w", err)
	}
	return utils.SafeWriteFile(path, data)
}
