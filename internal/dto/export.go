package dto

// ExportRequest queues an asynchronous export of the ledger.
type ExportRequest struct {
	Format string `json:"format" binding:"required"`
	Search string `json:"search"`
	Date   string `json:"date"`
	Status string `json:"status"`
}
