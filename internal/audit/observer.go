package audit

import (
	"context"
	"fmt"

	"github.com/techhouse/storefront/internal/repo"
)

// Observer turns repository writes into ADMIN ACTION audit entries, exactly
// one per write.
type Observer struct {
	Sink *Sink
}

func (o *Observer) Notify(ctx context.Context, e repo.Event) {
	var action, details string

	switch {
	case e.Entity == "User" && e.Op == repo.OpUpdated:
		action = "ADMIN ACTION: User Permissions Modified"
		details = e.Detail
	case e.Entity == "User" && e.Op == repo.OpDeleted:
		action = "ADMIN ACTION: User Deleted"
		details = e.Detail
	default:
		verb := e.Op.String()
		if e.Op == repo.OpUpdated {
			verb = "Modified"
		}
		action = fmt.Sprintf("ADMIN ACTION: %s %s", e.Entity, verb)
		details = fmt.Sprintf("Identifier: %s (ID: %d)", e.Name, e.ID)
	}

	o.Sink.Record(ctx, e.Actor.UserID, action, details, e.Actor.IP)
}
