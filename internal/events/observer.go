package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/techhouse/storefront/internal/logging"
	"github.com/techhouse/storefront/internal/repo"
)

// Observer mirrors repository writes to the event stream for downstream
// consumers. Best effort, like every other producer call site.
type Observer struct {
	Producer *Producer
}

func (o *Observer) Notify(ctx context.Context, e repo.Event) {
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	event := map[string]interface{}{
		"type":   fmt.Sprintf("%s_%s", strings.ToLower(e.Entity), strings.ToLower(e.Op.String())),
		"id":     e.ID,
		"name":   e.Name,
		"entity": e.Payload,
	}
	if e.Actor.UserID != nil {
		event["actor_id"] = *e.Actor.UserID
	}
	if err := o.Producer.PublishEvent(pubCtx, fmt.Sprint(e.ID), event); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "type", event["type"], "error", err)
	}
}
