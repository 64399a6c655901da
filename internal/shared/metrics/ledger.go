package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ledger agrupa os contadores das operações do lifecycle
type Ledger struct {
	Operations *prometheus.CounterVec // op x kind (OK, DuplicateBet, ...)
	Conflicts  *prometheus.CounterVec // op
}

// NewLedger cria e registra os contadores no registry informado
func NewLedger(reg prometheus.Registerer) *Ledger {
	l := &Ledger{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "operações do ledger por resultado",
		}, []string{"op", "result"}),
		Conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_store_conflicts_total",
			Help: "conflitos de versão no store (cada um gera nova tentativa ou falha)",
		}, []string{"op"}),
	}
	reg.MustRegister(l.Operations, l.Conflicts)
	return l
}

// OnResult e OnConflict têm a assinatura dos hooks do lifecycle.Manager
func (l *Ledger) OnResult(op, kind string) { l.Operations.WithLabelValues(op, kind).Inc() }

func (l *Ledger) OnConflict(op string) { l.Conflicts.WithLabelValues(op).Inc() }
