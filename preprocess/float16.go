package preprocess

import "github.com/x448/float16"

var f16LookupTable [65536]float32

func init() {
	// precompute every half precision value for fast conversion of fp16
	// model outputs
	for i := range f16LookupTable {
		f16LookupTable[i] = float16.Frombits(uint16(i)).Float32()
	}
}
