// internal/app/features/appusers/export.go
package appusers

import (
	"context"
	"net/http"

	appuserstore "github.com/dalemusser/mansahub/internal/app/store/appusers"
	"github.com/dalemusser/mansahub/internal/app/system/csvutil"
	"github.com/dalemusser/mansahub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /app-users/export.csv                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeExport streams the anonymized registry of every non-deleted
// mother.
func (h *Handler) ServeExport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	rows, err := h.Users.List(ctx, appuserstore.ListOptions{})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "registry export failed", err, "Could not export the registry.", "/app-users")
		return
	}

	if err := csvutil.StartDownload(w, csvutil.RegistryFilename(h.now().In(h.Loc))); err != nil {
		h.Log.Warn("registry export write failed", zap.Error(err))
		return
	}
	if err := csvutil.WriteRegistry(w, rows, h.Loc); err != nil {
		// Headers are already sent.
		h.Log.Warn("registry export write failed", zap.Error(err))
	}
}
