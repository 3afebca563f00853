package facemark

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// TrainOptions controls the linear SVM solver.
type TrainOptions struct {
	// C is the misclassification penalty. Zero means 1.
	C float64
	// Tol is the stopping tolerance on the projected gradient gap. Zero means 1e-6.
	Tol float64
	// MaxIter bounds the number of passes over the exemplars. Zero means 1000.
	MaxIter int
	// Seed drives the order the exemplars are visited in.
	Seed int64
}

func (o TrainOptions) withDefaults() TrainOptions {
	if o.C <= 0 {
		o.C = 1
	}
	if o.Tol <= 0 {
		o.Tol = 1e-6
	}
	if o.MaxIter <= 0 {
		o.MaxIter = 1000
	}
	return o
}

// Classifier is a trained linear discriminant for one landmark.
// It is read-only once Train returns and is safe for concurrent use.
type Classifier struct {
	Weights []float64 `yaml:"weights"`
	Bias    float64   `yaml:"bias"`
}

// Score returns the signed confidence of d: positive values favor the
// landmark being present. A descriptor of the wrong dimension never wins.
func (c *Classifier) Score(d Descriptor) float64 {
	if len(d) != len(c.Weights) {
		return math.Inf(-1)
	}
	return floats.Dot(c.Weights, d) + c.Bias
}

// Train fits a maximum margin linear separator between the positive and
// negative exemplars. The problem solved is the L2-regularized, squared hinge
// loss SVM with the bias learned as an extra feature of constant value 1,
// using dual coordinate descent (Hsieh et al., ICML 2008).
func Train(set ExemplarSet, opts TrainOptions) (*Classifier, error) {
	dim, err := set.Dim()
	if err != nil {
		return nil, &TrainingError{Err: err}
	}
	opts = opts.withDefaults()

	n := len(set.Positive) + len(set.Negative)
	xs := make([][]float64, 0, n)
	ys := make([]float64, 0, n)
	for _, row := range set.Positive {
		xs = append(xs, augment(row))
		ys = append(ys, 1)
	}
	for _, row := range set.Negative {
		xs = append(xs, augment(row))
		ys = append(ys, -1)
	}

	var (
		diag  = 0.5 / opts.C
		w     = make([]float64, dim+1)
		alpha = make([]float64, n)
		qd    = make([]float64, n)
		order = make([]int, n)
		rnd   = rand.New(rand.NewSource(opts.Seed))
	)
	for i, x := range xs {
		qd[i] = floats.Dot(x, x) + diag
		order[i] = i
	}

	for iter := 0; iter < opts.MaxIter; iter++ {
		pgMax, pgMin := math.Inf(-1), math.Inf(1)

		rnd.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, i := range order {
			g := ys[i]*floats.Dot(w, xs[i]) - 1 + diag*alpha[i]

			pg := g
			if alpha[i] == 0 && g > 0 {
				pg = 0
			}
			pgMax = math.Max(pgMax, pg)
			pgMin = math.Min(pgMin, pg)

			if math.Abs(pg) > 1e-12 {
				old := alpha[i]
				alpha[i] = math.Max(old-g/qd[i], 0)
				floats.AddScaled(w, (alpha[i]-old)*ys[i], xs[i])
			}
		}
		if pgMax-pgMin <= opts.Tol {
			break
		}
	}

	return &Classifier{
		Weights: w[:dim:dim],
		Bias:    w[dim],
	}, nil
}

// augment appends the constant bias feature to a copy of row.
func augment(row Descriptor) []float64 {
	x := make([]float64, len(row)+1)
	copy(x, row)
	x[len(row)] = 1
	return x
}
