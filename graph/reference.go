package graph

import "fmt"

// Fixed dimensions of the digit classifier.
const (
	digitChannels  = 32
	digitHiddenDim = 500
	digitClasses   = 10
)

// DigitClassifier builds the network this system prepares for
// handwritten-digit training: three Convolution-ReLU-MaxPool stages
// (3x3 kernels in the first stage, 2x2 after, 32 channels throughout,
// stride 1, same padding; pools 2x2 stride 2, valid), then Flatten,
// InnerProduct 288-500, ReLU, InnerProduct 500-10 and Softmax into the
// "output" tensor. Training follows DefaultTrainingConfig.
func DigitClassifier() (*Spec, error) {
	return DigitClassifierWithTraining(DefaultTrainingConfig())
}

// DigitClassifierWithTraining builds the same topology under a
// caller-supplied training configuration.
func DigitClassifierWithTraining(training TrainingConfig) (*Spec, error) {
	b := NewBuilder().
		Input("image", 1, 28, 28).
		Output("output", digitClasses).
		TrainingInput("output_true", digitClasses)

	h, w := 28, 28
	in := "image"
	inChannels := 1
	for stage := 1; stage <= 3; stage++ {
		kernel := 2
		if stage == 1 {
			kernel = 3
		}

		conv := fmt.Sprintf("conv%d", stage)
		b.AddConvolution(conv, in, conv+"_out", ConvParams{
			InChannels:  inChannels,
			OutChannels: digitChannels,
			KernelH:     kernel,
			KernelW:     kernel,
			StrideH:     1,
			StrideW:     1,
			Padding:     PaddingSame,
			UseBias:     true,
		})
		h, w = convOutput(h, w, kernel, kernel, 1, 1, PaddingSame)

		relu := fmt.Sprintf("relu%d", stage)
		b.AddReLU(relu, conv+"_out", relu+"_out")

		pool := fmt.Sprintf("pool%d", stage)
		b.AddPooling(pool, relu+"_out", pool+"_out", PoolParams{
			Kind:    MaxPool,
			KernelH: 2,
			KernelW: 2,
			StrideH: 2,
			StrideW: 2,
			Padding: PaddingValid,
		})
		h, w = poolOutput(h, w, 2, 2, 2, 2, PaddingValid)

		in = pool + "_out"
		inChannels = digitChannels
	}

	flatDim := digitChannels * h * w
	b.AddFlatten("flatten", in, "flatten_out", ChannelFirst)
	b.AddInnerProduct("dense1", "flatten_out", "dense1_out", InnerProductParams{
		InputDim:  flatDim,
		OutputDim: digitHiddenDim,
		UseBias:   true,
	})
	b.AddReLU("relu4", "dense1_out", "relu4_out")
	b.AddInnerProduct("dense2", "relu4_out", "dense2_out", InnerProductParams{
		InputDim:  digitHiddenDim,
		OutputDim: digitClasses,
		UseBias:   true,
	})
	b.AddSoftmax("softmax", "dense2_out", "output")

	return b.WithTraining(training).Build()
}
