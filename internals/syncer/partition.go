package syncer

// Partition splits an ordered indicator sequence into contiguous batches of at most
// maxSize indicators. Order is preserved within and across batches, the batches cover
// the input with no gaps or overlaps, and only the last batch may be shorter.
// maxSize bounds are enforced at configuration time, not here.
func Partition(indicators []Indicator, maxSize int) []Batch {
	if len(indicators) == 0 {
		return nil
	}
	batches := make([]Batch, 0, (len(indicators)+maxSize-1)/maxSize)
	for start := 0; start < len(indicators); start += maxSize {
		end := start + maxSize
		if end > len(indicators) {
			end = len(indicators)
		}
		batches = append(batches, Batch(indicators[start:end]))
	}
	return batches
}
