// Package testutil builds images and payloads for tests.
package testutil

import (
	"encoding/base64"
	"fmt"

	"gocv.io/x/gocv"
)

// SolidMat returns a width x height BGR image filled with one gray level.
// The caller is responsible for closing it.
func SolidMat(width, height int, gray float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(gray, gray, gray, 0), height, width, gocv.MatTypeCV8UC3)
}

// SolidJPEG returns a JPEG-encoded gray image of the given size.
func SolidJPEG(width, height int) ([]byte, error) {
	mat := SolidMat(width, height, 128)
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("encode fixture: %w", err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}

// DataURI wraps data the way a browser canvas does.
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
