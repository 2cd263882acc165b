/*****************************************************************************************************************/

//	@package	github.com/thespacedoctor/soxs-pipeline

/*****************************************************************************************************************/

package geometry

/*****************************************************************************************************************/

import (
	"testing"
)

/*****************************************************************************************************************/

func TestDistanceBetweenTwoCartesianPoints(t *testing.T) {
	x1 := 0.0
	y1 := 0.0
	x2 := 3.0
	y2 := 4.0

	expected := 5.0

	result := DistanceBetweenTwoCartesianPoints(x1, y1, x2, y2)

	if result != expected {
		t.Errorf("DistanceBetweenTwoCartesianPoints(%f, %f, %f, %f) = %f; want %f", x1, y1, x2, y2, result, expected)
	}
}

/*****************************************************************************************************************/

func TestDistanceBetweenTwoCartesianPointsSamePoint(t *testing.T) {
	result := DistanceBetweenTwoCartesianPoints(1.5, -2.5, 1.5, -2.5)

	if result != 0 {
		t.Errorf("expected zero distance for identical points, got %f", result)
	}
}

/*****************************************************************************************************************/
