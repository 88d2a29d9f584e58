/*
Package pedestrian is a sliding window pedestrian detector built on HOG
features and a linear SVM.

An image is scanned at every scale of a geometric pyramid with a 64x128
window moved in steps of one feature cell. Windows scoring above a
threshold are merged online into a list of detections, which is finally
cleaned up by non-maximum suppression.

The package provides a command line interface for training, detection and
evaluation on the INRIA person dataset. To check the supported commands type:

	$ pedestrian --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"fmt"
		"github.com/esimov/pedestrian"
	)

	func main() {
		c, err := pedestrian.LoadClassifier("svm_hard.model")
		if err != nil {
			panic(err)
		}
		d := &pedestrian.Detector{
			Classifier: c,
			ShowScores: true,
		}

		if _, err := d.Process(in, out); err != nil {
			fmt.Printf("Error detecting pedestrians: %s", err.Error())
		}
	}
*/
package pedestrian
