// internal/component/deps.go
package component

import (
	"github.com/yanizio/portal/internal/catalog"
	"github.com/yanizio/portal/internal/feed"
	"github.com/yanizio/portal/internal/subscription"
)

// Deps exposes the process-wide services to components during Init.
type Deps struct {
	Catalog       *catalog.Service
	Subscriptions *subscription.Service
	Feed          *feed.Hub

	// Origins lists the browser origins allowed to open websockets.
	// Empty means same-origin only.
	Origins []string
}
