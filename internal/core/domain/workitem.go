package domain

// WorkItem is a bounded slice of records published to the work queue by
// the fan-out controller. Items are consumed independently and may
// arrive out of order or more than once; only the order of records
// inside one item is guaranteed.
type WorkItem struct {
	Type         string   `json:"type"`
	Records      []Record `json:"records"`
	Timestamp    string   `json:"timestamp"`
	BatchNumber  int      `json:"batch_number"`
	TotalBatches int      `json:"total_batches"`
}

// Work item types understood by the router.
const (
	WorkTypeCostUsageBatch = "cur_batch"
	WorkTypeCRMBatch       = "salesforce_batch"
)
