package nuke

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/safetyops/scnuke/internal/paginate"
	"github.com/safetyops/scnuke/internal/resource"
)

// Per-kind page and batch sizes. These match what the backend tolerates
// in practice; the osha case listing additionally caps addressable page
// numbers.
const (
	actionPageSize    = 100
	actionDeleteBatch = 300
	issuePageSize     = 100
	assetPageSize     = 100
	credentialPS      = 100
	companyPageSize   = 100
	oshaPageSize      = 100
	oshaMaxPage       = 95
	sitePageSize      = 500
	siteDeleteBatch   = 40
)

// kindSpec binds one resource kind to its pagination strategy and its
// deletion procedure. The engine's loop is generic over this table.
type kindSpec struct {
	kind resource.Kind

	// batch is the number of identifiers per delete call; 1 means one
	// call per item.
	batch int

	newLister func(e *Engine) paginate.Lister
	deleteFn  func(e *Engine, ctx context.Context, items []resource.Item)
}

// kindTable is the closed set of resource kinds, in no particular
// order; processing order comes from resource.Order.
var kindTable = map[resource.Kind]kindSpec{
	resource.Actions: {
		kind:  resource.Actions,
		batch: actionDeleteBatch,
		newLister: func(e *Engine) paginate.Lister {
			return paginate.NewOffset(func(ctx context.Context, offset, limit int) (*paginate.Page, error) {
				body := map[string]any{
					"page_size":     limit,
					"offset":        offset,
					"without_count": true,
				}
				return e.listPage(ctx, resource.Actions, http.MethodPost, "/tasks/v1/actions/list", nil, body)
			}, actionPageSize, e.listConcurrency)
		},
		deleteFn: (*Engine).deleteActionBatch,
	},
	resource.Issues: {
		kind:  resource.Issues,
		batch: 1,
		newLister: func(e *Engine) paginate.Lister {
			return paginate.NewToken(func(ctx context.Context, token string) (*paginate.Page, error) {
				q := url.Values{}
				q.Set("page_size", strconv.Itoa(issuePageSize))
				if token != "" {
					q.Set("page_token", token)
				}
				return e.listPage(ctx, resource.Issues, http.MethodGet, "/incidents/v1/investigations", q, nil)
			})
		},
		deleteFn: func(e *Engine, ctx context.Context, items []resource.Item) {
			e.deleteSingle(ctx, resource.Issues, "investigation", items, pathDeleter{
				deletePath: func(id string) string { return "/incidents/v1/investigations/" + id },
			})
		},
	},
	resource.Inspections: {
		kind:  resource.Inspections,
		batch: 1,
		newLister: func(e *Engine) paginate.Lister {
			return paginate.NewLink(func(ctx context.Context, link string) (*paginate.Page, error) {
				return e.listPage(ctx, resource.Inspections, http.MethodGet, link, nil, nil)
			}, "/feed/inspections")
		},
		deleteFn: func(e *Engine, ctx context.Context, items []resource.Item) {
			e.deleteSingle(ctx, resource.Inspections, "inspection", items, pathDeleter{
				// Inspections must be archived before the backend
				// accepts a permanent delete.
				archivePath: func(id string) string { return "/inspections/v1/inspections/" + id + "/archive" },
				deletePath:  func(id string) string { return "/inspections/v1/inspections/" + id },
			})
		},
	},
	resource.Assets: {
		kind:  resource.Assets,
		batch: 1,
		newLister: func(e *Engine) paginate.Lister {
			// Two scans: active assets, then archived ones. The engine's
			// dedup set absorbs assets that move between scans.
			return paginate.NewSequence(
				e.assetLister(""),
				e.assetLister("ASSET_STATE_ARCHIVED"),
			)
		},
		deleteFn: func(e *Engine, ctx context.Context, items []resource.Item) {
			e.deleteSingle(ctx, resource.Assets, "asset", items, pathDeleter{
				archivePath: func(id string) string { return "/assets/v1/assets/" + id + "/archive" },
				deletePath:  func(id string) string { return "/assets/v1/assets/" + id },
			})
		},
	},
	resource.Credentials: {
		kind:  resource.Credentials,
		batch: 1,
		newLister: func(e *Engine) paginate.Lister {
			return paginate.NewToken(func(ctx context.Context, token string) (*paginate.Page, error) {
				body := map[string]any{"page_size": credentialPS}
				if token != "" {
					body["page_token"] = token
				}
				return e.listPage(ctx, resource.Credentials, http.MethodPost, "/credentials/v1/credentials", nil, body)
			})
		},
		deleteFn: func(e *Engine, ctx context.Context, items []resource.Item) {
			e.deleteByQuery(ctx, resource.Credentials, "credential", "/credentials/v1/credential", items)
		},
	},
	resource.Companies: {
		kind:  resource.Companies,
		batch: 1,
		newLister: func(e *Engine) paginate.Lister {
			return paginate.NewToken(func(ctx context.Context, token string) (*paginate.Page, error) {
				body := map[string]any{"page_size": companyPageSize}
				if token != "" {
					body["page_token"] = token
				}
				return e.listPage(ctx, resource.Companies, http.MethodPost, "/companies/v1beta/companies", nil, body)
			})
		},
		deleteFn: func(e *Engine, ctx context.Context, items []resource.Item) {
			e.deleteByQuery(ctx, resource.Companies, "company", "/companies/v1beta/company", items)
		},
	},
	resource.OshaCases: {
		kind:  resource.OshaCases,
		batch: 1,
		newLister: func(e *Engine) paginate.Lister {
			return paginate.NewHybrid(func(ctx context.Context, pageNumber int, token string) (*paginate.Page, error) {
				q := url.Values{}
				q.Set("page_size", strconv.Itoa(oshaPageSize))
				if token != "" {
					q.Set("page_token", token)
				} else {
					q.Set("page_number", strconv.Itoa(pageNumber))
				}
				return e.listPage(ctx, resource.OshaCases, http.MethodGet, "/incidents/v1/osha/cases", q, nil)
			}, oshaPageSize, e.listConcurrency, oshaMaxPage)
		},
		deleteFn: func(e *Engine, ctx context.Context, items []resource.Item) {
			e.deleteSingle(ctx, resource.OshaCases, "osha case", items, pathDeleter{
				deletePath: func(id string) string { return "/incidents/v1/osha/cases/" + id },
			})
		},
	},
	resource.Templates: {
		kind:  resource.Templates,
		batch: 1,
		newLister: func(e *Engine) paginate.Lister {
			return paginate.NewLink(func(ctx context.Context, link string) (*paginate.Page, error) {
				return e.listPage(ctx, resource.Templates, http.MethodGet, link, nil, nil)
			}, "/feed/templates")
		},
		deleteFn: func(e *Engine, ctx context.Context, items []resource.Item) {
			e.deleteSingle(ctx, resource.Templates, "template", items, pathDeleter{
				archivePath: func(id string) string { return "/templates/v1/templates/" + id + "/archive" },
				deletePath:  func(id string) string { return "/templates/v1/templates/" + id },
			})
		},
	},
	resource.Sites: {
		kind:  resource.Sites,
		batch: siteDeleteBatch,
		newLister: func(e *Engine) paginate.Lister {
			return paginate.NewToken(func(ctx context.Context, token string) (*paginate.Page, error) {
				body := map[string]any{
					"limit":                   sitePageSize,
					"include_deleted_folders": true,
				}
				if token != "" {
					body["page_token"] = token
				}
				return e.listPage(ctx, resource.Sites, http.MethodPost, "/directory/v1/folders/search", nil, body)
			})
		},
		deleteFn: (*Engine).deleteFolderBatch,
	},
}

// assetLister builds one token-sequential scan of the asset listing,
// optionally filtered to a lifecycle state.
func (e *Engine) assetLister(state string) paginate.Lister {
	return paginate.NewToken(func(ctx context.Context, token string) (*paginate.Page, error) {
		body := map[string]any{"page_size": assetPageSize}
		if token != "" {
			body["page_token"] = token
		}
		if state != "" {
			body["asset_filters"] = []map[string]any{{"state": state}}
		}
		return e.listPage(ctx, resource.Assets, http.MethodPost, "/assets/v1/assets/list", nil, body)
	})
}
