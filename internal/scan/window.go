package scan

import "fmt"

// Window is an inclusive block range covered by one provider query.
type Window struct {
	From uint64
	To   uint64
}

// Windows partitions [from, to] into ceil((to-from)/maxBlocks) contiguous,
// ascending windows. The first window is [from, from+maxBlocks]; every later
// window starts one block after the previous end. The last is clipped to to.
func Windows(from, to, maxBlocks uint64) ([]Window, error) {
	if maxBlocks == 0 {
		return nil, fmt.Errorf("max blocks per chunk must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	span := to - from
	count := span / maxBlocks
	if span%maxBlocks != 0 || count == 0 {
		count++
	}

	windows := make([]Window, 0, count)
	for i := uint64(0); i < count; i++ {
		start := from + i*maxBlocks
		if i > 0 {
			start++
		}
		end := from + (i+1)*maxBlocks
		if end > to || end < start {
			end = to
		}
		windows = append(windows, Window{From: start, To: end})
	}

	return windows, nil
}
