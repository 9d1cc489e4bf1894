package rpc

import (
	"context"

	"certchain/integrations/eventlog"
)

type eventsListParams struct {
	After  uint64 `json:"after,omitempty"`
	Type   string `json:"type,omitempty"`
	Module string `json:"module,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type eventsListResult struct {
	Events []eventJSON `json:"events"`
	// Next is the cursor to pass as After for the following page.
	Next uint64 `json:"next"`
}

func (s *Server) eventsList(ctx context.Context, c *call) (interface{}, error) {
	var params eventsListParams
	if len(c.params) > 0 {
		if err := decodeParams(c.params, &params); err != nil {
			return nil, err
		}
	}
	if params.Limit < 0 {
		return nil, invalidParams("limit must not be negative")
	}
	records, err := s.events.List(ctx, eventlog.Filter{
		After:  params.After,
		Type:   params.Type,
		Module: params.Module,
		Limit:  params.Limit,
	})
	if err != nil {
		return nil, err
	}
	out := eventsListResult{Events: make([]eventJSON, 0, len(records)), Next: params.After}
	for _, record := range records {
		evt, err := record.Event()
		if err != nil {
			return nil, err
		}
		out.Events = append(out.Events, eventJSON{
			Seq:        record.Seq,
			Module:     record.Module,
			Type:       record.Type,
			Attributes: evt.Attributes,
			CreatedAt:  record.CreatedAt.Unix(),
		})
		out.Next = record.Seq
	}
	return out, nil
}
