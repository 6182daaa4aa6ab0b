package accounts

// Metrics receives counters from the Service.
type Metrics interface {
	AccountCreated()
	AccountRetrieved()
	AccountUpdated()
	AccountDeleted()
	CacheHit()
	CacheMiss()
	AccountNotFound()
	IndexFailure(op string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) AccountCreated()        {}
func (NopMetrics) AccountRetrieved()      {}
func (NopMetrics) AccountUpdated()        {}
func (NopMetrics) AccountDeleted()        {}
func (NopMetrics) CacheHit()              {}
func (NopMetrics) CacheMiss()             {}
func (NopMetrics) AccountNotFound()       {}
func (NopMetrics) IndexFailure(op string) {}
