package service

import (
	"context"
	"fmt"
	"time"

	"aptoscope/internal/app/port"
	"aptoscope/internal/domain/entity"
)

// FlowLedger aggregates signed per-asset balance deltas by calendar day within
// the requested window.
type FlowLedger struct {
	flowSource   port.FlowSource
	fetchTimeout time.Duration
	logger       port.Logger
}

// NewFlowLedger creates a new FlowLedger.
func NewFlowLedger(flowSource port.FlowSource, fetchTimeout time.Duration, logger port.Logger) *FlowLedger {
	return &FlowLedger{
		flowSource:   flowSource,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

// Collect fetches flow events for the resolved assets and accumulates net
// deltas per (date, feedID) in human units. The caller treats any error as
// "flow data unavailable" and degrades to flat-balance mode.
func (l *FlowLedger) Collect(ctx context.Context, address string, assets []entity.ResolvedAsset, start, end time.Time) (entity.DailyFlows, error) {
	typeInfo := make(map[string]flowAssetInfo)
	assetTypes := make([]string, 0, len(assets))
	for _, a := range assets {
		for assetType, decimals := range a.AssetTypes {
			typeInfo[assetType] = flowAssetInfo{feedID: a.FeedID, decimals: decimals}
			assetTypes = append(assetTypes, assetType)
		}
	}
	if len(assetTypes) == 0 {
		return entity.DailyFlows{}, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, l.fetchTimeout)
	defer cancel()

	events, err := l.flowSource.GetFlows(fetchCtx, address, assetTypes, start, end)
	if err != nil {
		return nil, fmt.Errorf("flow fetch failed for %s: %w", address, err)
	}

	flows := make(entity.DailyFlows)
	for _, ev := range events {
		info, ok := typeInfo[ev.AssetType]
		if !ok {
			// The restriction clause should prevent this; tolerate anyway.
			l.logger.Debug("Ignoring flow event for unresolved asset type", "assetType", ev.AssetType)
			continue
		}
		flows.Add(ev.Date, info.feedID, ev.Amount.Shift(-int32(info.decimals)))
	}

	l.logger.Debug("Collected daily flows",
		"address", address,
		"eventCount", len(events),
		"daysWithFlows", len(flows))
	return flows, nil
}

type flowAssetInfo struct {
	feedID   string
	decimals uint8
}
