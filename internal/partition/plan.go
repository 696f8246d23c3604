// Package partition runs a split in parallel: the source is cut into byte
// ranges, each range is split by an independent engine.Split, and the
// per-partition results are merged into one run-wide result.
package partition

// Range is one planned partition: the raw half-open byte interval
// [Start, End) of the source. Index is 1-based and appears in output file
// names. Ranges are widened to whole lines when opened.
type Range struct {
	Index      int
	Start, End int64
}

// ChunkSize is min(configured, ceil(fileSize/workers)), never below 1.
func ChunkSize(fileSize int64, workers int, configured int64) int64 {
	if workers < 1 {
		workers = 1
	}
	even := (fileSize + int64(workers) - 1) / int64(workers)
	chunk := configured
	if chunk <= 0 || even < chunk {
		chunk = even
	}
	if chunk < 1 {
		chunk = 1
	}
	return chunk
}

// Plan cuts [0, fileSize) into consecutive ranges of ChunkSize bytes; the
// last one may be shorter. An empty file yields no ranges.
func Plan(fileSize int64, workers int, configured int64) []Range {
	if fileSize <= 0 {
		return nil
	}
	chunk := ChunkSize(fileSize, workers, configured)
	ranges := make([]Range, 0, (fileSize+chunk-1)/chunk)
	for off := int64(0); off < fileSize; off += chunk {
		end := off + chunk
		if end > fileSize {
			end = fileSize
		}
		ranges = append(ranges, Range{Index: len(ranges) + 1, Start: off, End: end})
	}
	return ranges
}
