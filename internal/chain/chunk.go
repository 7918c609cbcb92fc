package chain

import "fmt"

// CallRange is a half-open range [From, To) of request indexes.
type CallRange struct {
	From int
	To   int
}

// SplitCalls splits count requests into ranges of at most batchSize.
func SplitCalls(count, batchSize int) ([]CallRange, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if count < 0 {
		return nil, fmt.Errorf("count must not be negative")
	}

	ranges := make([]CallRange, 0, (count+batchSize-1)/batchSize)
	for start := 0; start < count; start += batchSize {
		end := start + batchSize
		if end > count {
			end = count
		}
		ranges = append(ranges, CallRange{From: start, To: end})
	}
	return ranges, nil
}
