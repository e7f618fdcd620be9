package notify

import "sync"

// Metrics holds internal, lock-protected counters for the delivery pipeline.
// Fields are intentionally unexported to prevent racy access; use View to
// obtain a read-only snapshot.
type Metrics struct {
	mu              sync.RWMutex
	rowsReceived    int64
	rowsDelivered   int64
	rowsFiltered    int64
	decodeFailures  int64
	senderFallbacks int64
	systemRows      int64
	reconnects      int64
	historyLoads    int64
	chimeFailures   int64
}

// MetricsView is a read-only snapshot of pipeline metrics safe for external
// observation and JSON serialization.
type MetricsView struct {
	RowsReceived    int64 `json:"rows_received"`
	RowsDelivered   int64 `json:"rows_delivered"`
	RowsFiltered    int64 `json:"rows_filtered"`
	DecodeFailures  int64 `json:"decode_failures"`
	SenderFallbacks int64 `json:"sender_fallbacks"`
	SystemRows      int64 `json:"system_rows"`
	Reconnects      int64 `json:"reconnects"`
	HistoryLoads    int64 `json:"history_loads"`
	ChimeFailures   int64 `json:"chime_failures"`
}

// View returns the current counters captured under read lock.
func (m *Metrics) View() MetricsView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsView{
		RowsReceived:    m.rowsReceived,
		RowsDelivered:   m.rowsDelivered,
		RowsFiltered:    m.rowsFiltered,
		DecodeFailures:  m.decodeFailures,
		SenderFallbacks: m.senderFallbacks,
		SystemRows:      m.systemRows,
		Reconnects:      m.reconnects,
		HistoryLoads:    m.historyLoads,
		ChimeFailures:   m.chimeFailures,
	}
}

func (m *Metrics) add(field *int64) {
	m.mu.Lock()
	*field++
	m.mu.Unlock()
}

func (m *Metrics) recordRowReceived()    { m.add(&m.rowsReceived) }
func (m *Metrics) recordRowDelivered()   { m.add(&m.rowsDelivered) }
func (m *Metrics) recordRowFiltered()    { m.add(&m.rowsFiltered) }
func (m *Metrics) recordDecodeFailure()  { m.add(&m.decodeFailures) }
func (m *Metrics) recordSenderFallback() { m.add(&m.senderFallbacks) }
func (m *Metrics) recordSystemRow()      { m.add(&m.systemRows) }
func (m *Metrics) recordReconnect()      { m.add(&m.reconnects) }
func (m *Metrics) recordHistoryLoad()    { m.add(&m.historyLoads) }
func (m *Metrics) recordChimeFailure()   { m.add(&m.chimeFailures) }
