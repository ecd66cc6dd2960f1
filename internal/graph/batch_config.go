package graph

// BatchConfig defines optimal batch sizes per node label for UNWIND-based
// bulk MERGE. Small batches suit nodes with many properties, large batches
// suit edges with few properties.
type BatchConfig struct {
	FileBatchSize       int
	ClassBatchSize      int
	FunctionBatchSize   int
	CallSiteBatchSize   int
	ImportSiteBatchSize int
	EdgeBatchSize       int
}

// DefaultBatchConfig returns batch sizes tuned for medium repos (~5K files).
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		FileBatchSize:       1000,
		ClassBatchSize:      1000,
		FunctionBatchSize:   2000,
		CallSiteBatchSize:   2000,
		ImportSiteBatchSize: 2000,
		EdgeBatchSize:       5000,
	}
}

// SmallRepoBatchConfig is for repos under 500 files.
func SmallRepoBatchConfig() BatchConfig {
	return BatchConfig{
		FileBatchSize:       200,
		ClassBatchSize:      200,
		FunctionBatchSize:   500,
		CallSiteBatchSize:   500,
		ImportSiteBatchSize: 500,
		EdgeBatchSize:       1000,
	}
}

// LargeRepoBatchConfig is for repos over 10K files.
func LargeRepoBatchConfig() BatchConfig {
	return BatchConfig{
		FileBatchSize:       2000,
		ClassBatchSize:      2000,
		FunctionBatchSize:   5000,
		CallSiteBatchSize:   5000,
		ImportSiteBatchSize: 5000,
		EdgeBatchSize:       10000,
	}
}

// GetBatchSizeForLabel returns the batch size for a given node label.
func (bc BatchConfig) GetBatchSizeForLabel(label string) int {
	switch label {
	case "File":
		return bc.FileBatchSize
	case "Class":
		return bc.ClassBatchSize
	case "Function":
		return bc.FunctionBatchSize
	case "CallSite":
		return bc.CallSiteBatchSize
	case "ImportSite":
		return bc.ImportSiteBatchSize
	default:
		return 500
	}
}
