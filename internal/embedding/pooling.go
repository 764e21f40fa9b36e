package embedding

// meanPool averages the token vectors in hidden (row-major seq x dims) whose
// attention mask is set. Padding rows never contribute.
func meanPool(hidden []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var n float32
	for i, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[i*dims : (i+1)*dims]
		for j, v := range row {
			out[j] += v
		}
		n++
	}
	if n == 0 {
		return out
	}
	for j := range out {
		out[j] /= n
	}
	return out
}
