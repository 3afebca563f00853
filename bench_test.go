package facemark

import (
	"context"
	"image"
	"testing"
)

func Benchmark_Extractor(b *testing.B) {
	img := texturedGray(DefaultFaceSize, DefaultFaceSize)
	e := NewGradientExtractor()

	var samples []Sample
	for _, p := range Stencil(image.Pt(150, 150), DefaultRadius) {
		samples = append(samples, Sample{X: p.X, Y: p.Y, Scale: DefaultKeypointScale})
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := e.Extract(img, samples); err != nil {
			b.FailNow()
		}
	}
}

func Benchmark_Refine(b *testing.B) {
	img := texturedGray(DefaultFaceSize, DefaultFaceSize)
	s := NewSearcher(NewGradientExtractor())
	clf := &Classifier{Weights: make([]float64, 128)}
	for i := range clf.Weights {
		clf.Weights[i] = float64(i%7) - 3
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := s.Refine(img, image.Pt(120, 120), DefaultRadius, clf); err != nil {
			b.FailNow()
		}
	}
}

func Benchmark_Tracker(b *testing.B) {
	img := texturedGray(DefaultFaceSize, DefaultFaceSize)
	layout := DefaultLayout()

	scorers := make(map[string]Scorer, len(layout.Landmarks))
	for i, name := range layout.Names() {
		clf := &Classifier{Weights: make([]float64, 128)}
		clf.Weights[i%128] = 1
		scorers[name] = clf
	}
	bank, err := NewBank(layout.Names(), scorers)
	if err != nil {
		b.Fatalf("could not build the bank: %v", err)
	}
	tr, err := NewTracker(bank, NewSearcher(NewGradientExtractor()), layout.InitialGuesses())
	if err != nil {
		b.Fatalf("could not build the tracker: %v", err)
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := tr.Refine(context.Background(), img); err != nil {
			b.FailNow()
		}
		tr.Reset()
	}
}
