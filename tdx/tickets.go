package tdx

import (
	"context"
	"fmt"

	"github.com/umich-tech-consulting/tdxapi/resolver"
)

// TicketSearch describes a ticket search. Status names are resolved against
// the ticket application's scoped status namespace. The remote search cannot
// filter by title, so Title is matched locally after the results return.
type TicketSearch struct {
	RequesterUID     string
	StatusNames      []string
	Title            string
	ResponsibleGroup string // optional group name filter
	AppName          string // ticket application; empty uses the configured default
}

// SearchTickets submits search criteria to the remote and filters the result
// list for exact title matches, preserving the remote's result order. The
// local title filter compensates for a missing server-side filter.
func (i *Instance) SearchTickets(ctx context.Context, q TicketSearch) ([]Ticket, error) {
	appName, err := i.ticketApp(q.AppName)
	if err != nil {
		return nil, err
	}
	appID, err := i.appID(appName)
	if err != nil {
		return nil, err
	}

	statusIDs := make([]int, 0, len(q.StatusNames))
	for _, name := range q.StatusNames {
		id, err := i.res.ResolveIn(appName, resolver.TicketStatusIDs, name)
		if err != nil {
			return nil, err
		}
		statusIDs = append(statusIDs, id)
	}

	body := map[string]any{
		"RequestorUids": []string{q.RequesterUID},
		"StatusIDs":     statusIDs,
	}
	if q.ResponsibleGroup != "" {
		groupID, err := i.res.Resolve(resolver.GroupIDs, q.ResponsibleGroup)
		if err != nil {
			return nil, err
		}
		body["ResponsibilityGroupIDs"] = []int{groupID}
	}

	resp, err := i.tp.Post(ctx, fmt.Sprintf("%d/tickets/search", appID), body)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	var tickets []Ticket
	if err := resp.JSON(&tickets); err != nil {
		return nil, err
	}

	if q.Title == "" {
		return tickets, nil
	}
	matched := make([]Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		if ticket.Title == q.Title {
			matched = append(matched, ticket)
		}
	}
	return matched, nil
}

// GetTicket fetches a full ticket, including its custom attributes.
func (i *Instance) GetTicket(ctx context.Context, ticketID int, appName string) (*Ticket, error) {
	appName, err := i.ticketApp(appName)
	if err != nil {
		return nil, err
	}
	appID, err := i.appID(appName)
	if err != nil {
		return nil, err
	}
	resp, err := i.tp.Get(ctx, fmt.Sprintf("%d/tickets/%d", appID, ticketID))
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	var ticket Ticket
	if err := resp.JSON(&ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateTicketStatus posts a feed entry that moves the ticket to the named
// status. The entry is private and plain text.
func (i *Instance) UpdateTicketStatus(ctx context.Context, ticketID int, statusName, comments, appName string) error {
	appName, err := i.ticketApp(appName)
	if err != nil {
		return err
	}
	appID, err := i.appID(appName)
	if err != nil {
		return err
	}
	statusID, err := i.res.ResolveIn(appName, resolver.TicketStatusIDs, statusName)
	if err != nil {
		return err
	}

	body := map[string]any{
		"NewStatusID": statusID,
		"Comments":    comments,
		"IsPrivate":   true,
		"IsRichHTML":  false,
	}
	resp, err := i.tp.Post(ctx, fmt.Sprintf("%d/tickets/%d/feed", appID, ticketID), body)
	if err != nil {
		return err
	}
	return resp.Err()
}

// AttachAssetToTicket attaches an asset to a ticket in the given ticket
// application. A non-success response signals an AttachFailedError carrying
// both identifiers; an asset that is already attached is the usual cause.
func (i *Instance) AttachAssetToTicket(ctx context.Context, ticketID, assetID int, appName string) error {
	appName, err := i.ticketApp(appName)
	if err != nil {
		return err
	}
	appID, err := i.appID(appName)
	if err != nil {
		return err
	}
	resp, err := i.tp.Post(ctx, fmt.Sprintf("%d/tickets/%d/assets/%d", appID, ticketID, assetID), nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &AttachFailedError{TicketID: ticketID, AssetID: assetID, Status: resp.Status}
	}
	return nil
}
