package ledger

// Fold derives the snapshot of source from entries. It is the only way
// balances are computed.
func Fold(cfg Config, entries []Entry, source FundSource) Snapshot {
	snap := Snapshot{Source: source, Name: cfg.name(source)}
	for _, e := range entries {
		if e.Source != source {
			continue
		}
		switch e.Kind {
		case KindPrecommit:
			snap.Precommitted += e.Amount
		case KindDisburse:
			snap.Disbursed += e.Amount
		case KindReplenish:
			snap.Replenished += e.Amount
		}
	}

	switch source {
	case SourceMain:
		snap.Allocated = cfg.MainAllocated
		snap.Balance = cfg.MainAllocated - snap.Precommitted - snap.Disbursed
	case SourceCA:
		policy := NewPolicy(cfg)
		pct := policy.ThresholdPercent
		threshold := policy.Threshold()
		snap.Ceiling = cfg.CACeiling
		snap.Balance = cfg.CACeiling - snap.Precommitted - snap.Disbursed + snap.Replenished
		snap.ThresholdPercent = &pct
		snap.ThresholdAmount = &threshold
		snap.ReplenishTo = cfg.CAReplenishTo
		snap.PostAuditLimit = PostAuditLimit
	}
	return snap
}

func sumKind(entries []Entry, source FundSource, kind EntryKind) int64 {
	var total int64
	for _, e := range entries {
		if e.Source == source && e.Kind == kind {
			total += e.Amount
		}
	}
	return total
}
