package tdx

import (
	"context"
	"fmt"
	"time"

	"github.com/umich-tech-consulting/tdxapi/resolver"
)

// NoOwnerUID is the well-known identifier the remote uses for an asset with
// no assigned owner.
const NoOwnerUID = "00000000-0000-0000-0000-000000000000"

// Names of the custom attributes maintained by check-in.
const (
	notesAttribute           = "Notes"
	lastInventoriedAttribute = "Last Inventoried"
)

// inventoryDateFormat is the MM/DD/YYYY stamp the remote expects.
const inventoryDateFormat = "01/02/2006"

// GetAsset fetches a single asset, including its custom attributes.
func (i *Instance) GetAsset(ctx context.Context, assetID int, appName string) (*Asset, error) {
	appName, err := i.assetApp(appName)
	if err != nil {
		return nil, err
	}
	appID, err := i.appID(appName)
	if err != nil {
		return nil, err
	}
	resp, err := i.tp.Get(ctx, fmt.Sprintf("%d/assets/%d", appID, assetID))
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	var asset Asset
	if err := resp.JSON(&asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// SearchAssets submits a serial/name substring query and returns the raw
// match list. The remote omits custom attributes from search results: fetch
// matches individually with GetAsset when attributes are needed.
func (i *Instance) SearchAssets(ctx context.Context, query, appName string) ([]Asset, error) {
	appName, err := i.assetApp(appName)
	if err != nil {
		return nil, err
	}
	appID, err := i.appID(appName)
	if err != nil {
		return nil, err
	}
	body := map[string]any{"SerialLike": query}
	resp, err := i.tp.Post(ctx, fmt.Sprintf("%d/assets/search", appID), body)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	var assets []Asset
	if err := resp.JSON(&assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// UpdateAsset submits an updated asset document to the remote. Fields the
// library does not type are sent back exactly as they arrived.
func (i *Instance) UpdateAsset(ctx context.Context, asset *Asset, appName string) error {
	appName, err := i.assetApp(appName)
	if err != nil {
		return err
	}
	appID, err := i.appID(appName)
	if err != nil {
		return err
	}
	resp, err := i.tp.Post(ctx, fmt.Sprintf("%d/assets/%d", appID, asset.ID), asset)
	if err != nil {
		return err
	}
	return resp.Err()
}

// CheckInOptions describes an inventory/check-in update.
type CheckInOptions struct {
	Location string // new location name
	Status   string // new status name, scoped to the asset application
	OwnerUID string // new owner; empty removes the owner
	Notes    string // new value for the Notes attribute
	AppName  string // asset application; empty uses the configured default
}

// CheckInAsset updates the inventory state of an asset: location, status,
// owner, the Notes attribute, and a Last Inventoried date stamp. Notes and
// Last Inventoried are upserted; an attribute already on the asset is
// mutated in place and a missing one is appended with its resolved
// definition identifier. All other attributes are left untouched. The
// updated asset is then submitted to the remote.
func (i *Instance) CheckInAsset(ctx context.Context, asset *Asset, opts CheckInOptions) error {
	appName, err := i.assetApp(opts.AppName)
	if err != nil {
		return err
	}

	locationID, err := i.res.Resolve(resolver.LocationIDs, opts.Location)
	if err != nil {
		return err
	}
	statusID, err := i.res.ResolveIn(appName, resolver.AssetStatusIDs, opts.Status)
	if err != nil {
		return err
	}
	notesID, err := i.res.Resolve(resolver.AssetAttributes, notesAttribute)
	if err != nil {
		return err
	}
	inventoriedID, err := i.res.Resolve(resolver.AssetAttributes, lastInventoriedAttribute)
	if err != nil {
		return err
	}

	asset.LocationID = locationID
	asset.StatusID = statusID
	if opts.OwnerUID == "" {
		asset.OwningCustomerID = NoOwnerUID
	} else {
		asset.OwningCustomerID = opts.OwnerUID
	}

	asset.Attributes = UpsertAttribute(asset.Attributes, notesAttribute, notesID, opts.Notes)
	stamp := time.Now().Format(inventoryDateFormat)
	asset.Attributes = UpsertAttribute(asset.Attributes, lastInventoriedAttribute, inventoriedID, stamp)

	return i.UpdateAsset(ctx, asset, appName)
}
