package graph

// convOutput computes the spatial output size of a convolution.
// Same padding keeps ceil(size/stride); valid padding computes
// (size - kernel)/stride + 1.
func convOutput(h, w, kernelH, kernelW, strideH, strideW int, padding Padding) (int, int) {
	if padding == PaddingSame {
		return ceilDiv(h, strideH), ceilDiv(w, strideW)
	}
	return (h-kernelH)/strideH + 1, (w-kernelW)/strideW + 1
}

// poolOutput computes the spatial output size of a pooling layer. The
// arithmetic matches convOutput; pooling windows never pad values, the
// same policy only affects the output size.
func poolOutput(h, w, kernelH, kernelW, strideH, strideW int, padding Padding) (int, int) {
	return convOutput(h, w, kernelH, kernelW, strideH, strideW, padding)
}

// samePads returns the explicit [top, left, bottom, right] zero padding
// that realizes same-policy output for the given kernel and stride.
// Odd totals put the extra cell at the bottom/right edge.
func samePads(h, w, kernelH, kernelW, strideH, strideW int) [4]int {
	outH := ceilDiv(h, strideH)
	outW := ceilDiv(w, strideW)
	totalH := max0((outH-1)*strideH + kernelH - h)
	totalW := max0((outW-1)*strideW + kernelW - w)
	top := totalH / 2
	left := totalW / 2
	return [4]int{top, left, totalH - top, totalW - left}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
