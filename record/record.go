// Package record decodes raw MNIST-style text records into normalized
// training examples. Each record carries a class label followed by the
// 784 pixel intensities of one 28x28 grayscale image.
package record

import (
	"fmt"
	"strconv"
)

// Record layout constants. A well-formed record has exactly NumFields
// fields: the label, then one field per pixel in row-major order.
const (
	NumClasses  = 10
	ImageDepth  = 1
	ImageHeight = 28
	ImageWidth  = 28
	ImagePixels = ImageDepth * ImageHeight * ImageWidth
	NumFields   = 1 + ImagePixels
)

// maxIntensity is the largest raw pixel value; intensities are scaled
// into [0,1] by dividing by it.
const maxIntensity = 255.0

// Example is one decoded training example. Image holds the 1x28x28
// tensor flattened row-major (pixel (r,c) at index r*28+c) with values
// in [0,1]. Label is a one-hot vector of length NumClasses.
// An Example is immutable once returned by Decode.
type Example struct {
	Image []float32 `json:"image"`
	Label []float32 `json:"label"`
}

// LabelValue returns the class index encoded in the one-hot label.
func (e *Example) LabelValue() int {
	for i, v := range e.Label {
		if v == 1 {
			return i
		}
	}
	return -1
}

// DecodeErrorKind classifies record decode failures.
type DecodeErrorKind int

const (
	// WrongArity means the record did not have exactly NumFields fields.
	WrongArity DecodeErrorKind = iota
	// MalformedField means a field was non-numeric or out of range.
	MalformedField
)

// String returns a human-readable kind name.
func (k DecodeErrorKind) String() string {
	switch k {
	case WrongArity:
		return "WrongArity"
	case MalformedField:
		return "MalformedField"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// DecodeError reports why a record could not be decoded. Field and
// Value identify the offending field for MalformedField; Count holds
// the observed field count for WrongArity.
type DecodeError struct {
	Kind  DecodeErrorKind
	Field int
	Value string
	Count int
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	switch e.Kind {
	case WrongArity:
		return fmt.Sprintf("record has %d fields, want %d", e.Count, NumFields)
	case MalformedField:
		return fmt.Sprintf("field %d: malformed value %q", e.Field, e.Value)
	default:
		return fmt.Sprintf("decode error kind %d", int(e.Kind))
	}
}

// Decode parses one raw record into an Example. Field 0 must be an
// integer class label in [0,9]; fields 1..784 must be numeric pixel
// intensities in [0,255]. The label is one-hot encoded and each pixel
// is divided by 255 and stored at its source position, so field i+1
// lands at image index i. Decode is pure: it never returns a partial
// Example alongside an error.
func Decode(fields []string) (*Example, error) {
	if len(fields) != NumFields {
		return nil, &DecodeError{Kind: WrongArity, Field: -1, Count: len(fields)}
	}

	label, err := strconv.Atoi(fields[0])
	if err != nil || label < 0 || label >= NumClasses {
		return nil, &DecodeError{Kind: MalformedField, Field: 0, Value: fields[0]}
	}

	image := make([]float32, ImagePixels)
	for i, raw := range fields[1:] {
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil || v < 0 || v > maxIntensity {
			return nil, &DecodeError{Kind: MalformedField, Field: i + 1, Value: raw}
		}
		image[i] = float32(v / maxIntensity)
	}

	oneHot := make([]float32, NumClasses)
	oneHot[label] = 1

	return &Example{Image: image, Label: oneHot}, nil
}
