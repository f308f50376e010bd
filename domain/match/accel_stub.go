//go:build !gocv

package match

import "errors"

func newCorrelator() (Correlator, error) {
	return nil, errors.New("built without the gocv tag")
}
