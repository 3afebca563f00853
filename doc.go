/*
Package facemark tracks a fixed set of facial landmarks over a sequence of images.

Every landmark has its own linear classifier trained on SIFT like gradient descriptors
of positive and negative exemplars. On each frame the face is located, resampled to a
normalized square and every landmark estimate is refined by a coarse to fine 3x3 stencil
search, which keeps moving to the candidate its classifier scores highest while the
search radius shrinks. The refined positions seed the search of the next frame.

The package provides a command line interface, supporting various flags for training,
tracking and exemplar collection. To check the supported commands type:

	$ facemark --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"fmt"
		"github.com/esimov/facemark"
	)

	func main() {
		layout := facemark.DefaultLayout()
		sets, err := layout.LoadExemplars()
		if err != nil {
			// handle error
		}
		bank, err := facemark.TrainBank(sets, facemark.TrainOptions{}, 0)
		if err != nil {
			// handle error
		}
		p := &facemark.Processor{
			Layout: layout,
			Bank:   bank,
		}

		if err := p.Process(in, out); err != nil {
			fmt.Printf("Error refining the landmarks: %s", err.Error())
		}
	}
*/
package facemark
