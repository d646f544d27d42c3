package model

// TopK is how many classes a classification result carries.
const TopK = 5

// Result is the raw output of one inference call.
type Result struct {
	// Probs is nil when the model produced no classification probabilities
	// for the image.
	Probs *Probs
}

// Probs holds the top classes of a class distribution, highest first.
// Top5 and Top5Conf are parallel: Top5Conf[i] is the confidence of Top5[i].
type Probs struct {
	Top5     []int
	Top5Conf []float32
}
