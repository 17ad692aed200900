package market

// Kind tags how a signal was triggered. Branching on the tag replaces the
// substring matching the reason strings would otherwise invite.
type Kind int

const (
	// KindAbsorption is a large trade that failed to move price its way.
	KindAbsorption Kind = iota
	// KindMaxAbsorption is an absorption print at the extreme size percentile.
	KindMaxAbsorption
	// KindShock is a large-trade momentum trigger.
	KindShock
	// KindCombo is a large trade landing inside an aligned stealth streak.
	KindCombo
	// KindForgiving is a stealth streak trigger on its own.
	KindForgiving
)

// IsAbsorption reports whether the signal came from the absorption path.
func (k Kind) IsAbsorption() bool { return k == KindAbsorption || k == KindMaxAbsorption }

// StealthBacked reports whether a stealth streak contributed to the trigger.
func (k Kind) StealthBacked() bool { return k == KindCombo || k == KindForgiving }

// String renders the trigger family used in reasons and per-reason stats.
func (k Kind) String() string {
	switch k {
	case KindAbsorption:
		return "ABSORPTION"
	case KindMaxAbsorption:
		return "MAX_ABSORPTION"
	case KindShock:
		return "SHOCK"
	case KindCombo:
		return "COMBO-FORGIVING"
	default:
		return "FORGIVING"
	}
}

// Signal is one directional pulse emitted by the signal engine. Immutable
// once created; the punch engine keeps the ten most recent for clustering.
type Signal struct {
	Ts       float64
	Side     Side
	Kind     Kind
	Strength float64
}

// Reason renders the tag plus direction, e.g. "SHOCK_BUY".
func (s Signal) Reason() string { return s.Kind.String() + "_" + s.Side.String() }

// ClusterStatus enumerates outcomes of the cluster/verification machine.
type ClusterStatus int

const (
	// ClusterIdle means no cluster activity this tick.
	ClusterIdle ClusterStatus = iota
	// ClusterPending means a verification window is still counting trades.
	ClusterPending
	// ClusterFound means two signals just formed a cluster awaiting verification.
	ClusterFound
	// ClusterVerified means net order flow confirmed the pending cluster.
	ClusterVerified
	// ClusterInvalidated means the verification window closed without confirmation.
	ClusterInvalidated
)

// String renders the status for logs and metrics labels.
func (c ClusterStatus) String() string {
	switch c {
	case ClusterPending:
		return "PENDING"
	case ClusterFound:
		return "CLUSTER_FOUND"
	case ClusterVerified:
		return "VERIFIED"
	case ClusterInvalidated:
		return "INVALIDATED"
	default:
		return "IDLE"
	}
}

// ClusterUpdate reports the punch engine's state transition for one tick.
type ClusterUpdate struct {
	Status  ClusterStatus
	Signal  Signal
	NetFlow int
}
