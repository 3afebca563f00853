package facemark

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Scorer is the single capability the search needs from a landmark classifier.
type Scorer interface {
	Score(Descriptor) float64
}

// ScorerFunc adapts an ordinary function to the Scorer interface.
type ScorerFunc func(Descriptor) float64

// Score calls f(d).
func (f ScorerFunc) Score(d Descriptor) float64 { return f(d) }

// NamedExemplarSet pairs an exemplar set with the landmark it trains.
type NamedExemplarSet struct {
	Name string
	Set  ExemplarSet
}

// Bank maps landmark names to their scorers. The order of the landmarks is
// fixed when the bank is built and a bank is never modified afterwards.
type Bank struct {
	names   []string
	scorers map[string]Scorer
}

// NewBank builds a bank from already constructed scorers.
func NewBank(names []string, scorers map[string]Scorer) (*Bank, error) {
	b := &Bank{
		names:   make([]string, len(names)),
		scorers: make(map[string]Scorer, len(names)),
	}
	copy(b.names, names)

	for _, name := range names {
		s, ok := scorers[name]
		if !ok || s == nil {
			return nil, fmt.Errorf("missing scorer for landmark %q", name)
		}
		if _, dup := b.scorers[name]; dup {
			return nil, fmt.Errorf("duplicate landmark %q", name)
		}
		b.scorers[name] = s
	}
	return b, nil
}

// TrainBank trains one classifier per landmark. Landmarks are trained
// concurrently with at most workers goroutines (zero means one per CPU).
// Either every landmark trains and a bank is returned, or the bank is nil
// and the error is the *TrainingError of the first failing landmark.
func TrainBank(sets []NamedExemplarSet, opts TrainOptions, workers int) (*Bank, error) {
	if len(sets) == 0 {
		return nil, &TrainingError{Err: errors.New("no landmarks to train")}
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		g       errgroup.Group
		trained = make([]*Classifier, len(sets))
	)
	g.SetLimit(workers)

	for i, ns := range sets {
		i, ns := i, ns
		g.Go(func() error {
			c, err := Train(ns.Set, opts)
			if err != nil {
				var te *TrainingError
				if errors.As(err, &te) {
					te.Landmark = ns.Name
					return te
				}
				return &TrainingError{Landmark: ns.Name, Err: err}
			}
			trained[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := make([]string, len(sets))
	scorers := make(map[string]Scorer, len(sets))
	for i, ns := range sets {
		names[i] = ns.Name
		scorers[ns.Name] = trained[i]
	}
	b, err := NewBank(names, scorers)
	if err != nil {
		return nil, &TrainingError{Err: err}
	}
	return b, nil
}

// CheckDim verifies that every linear classifier of the bank scores
// descriptors of dimension dim. Other scorers are not checked.
func (b *Bank) CheckDim(dim int) error {
	for _, name := range b.names {
		c, ok := b.scorers[name].(*Classifier)
		if !ok {
			continue
		}
		if len(c.Weights) != dim {
			return fmt.Errorf("landmark %q has %d weights, the extractor yields %d: %w",
				name, len(c.Weights), dim, ErrDimensionMismatch)
		}
	}
	return nil
}

// Names returns the landmark names in bank order.
func (b *Bank) Names() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Len returns the number of landmarks.
func (b *Bank) Len() int { return len(b.names) }

// Scorer returns the scorer of the named landmark.
func (b *Bank) Scorer(name string) (Scorer, bool) {
	s, ok := b.scorers[name]
	return s, ok
}

// at returns the scorer of the i-th landmark.
func (b *Bank) at(i int) Scorer {
	return b.scorers[b.names[i]]
}

type bankFile struct {
	Landmarks []savedClassifier `yaml:"landmarks"`
}

type savedClassifier struct {
	Name       string `yaml:"name"`
	Classifier `yaml:",inline"`
}

// SaveBank writes the trained linear classifiers of b to a YAML file.
func SaveBank(b *Bank, path string) error {
	var bf bankFile
	for _, name := range b.names {
		c, ok := b.scorers[name].(*Classifier)
		if !ok {
			return fmt.Errorf("landmark %q does not hold a linear classifier", name)
		}
		bf.Landmarks = append(bf.Landmarks, savedClassifier{Name: name, Classifier: *c})
	}
	data, err := yaml.Marshal(&bf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadBank reads a bank previously written by SaveBank.
func LoadBank(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bf bankFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("could not decode the classifier bank: %w", err)
	}

	names := make([]string, 0, len(bf.Landmarks))
	scorers := make(map[string]Scorer, len(bf.Landmarks))
	for _, sc := range bf.Landmarks {
		if len(sc.Weights) == 0 {
			return nil, fmt.Errorf("landmark %q has no weights", sc.Name)
		}
		c := sc.Classifier
		names = append(names, sc.Name)
		scorers[sc.Name] = &c
	}
	return NewBank(names, scorers)
}
