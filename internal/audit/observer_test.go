package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techhouse/storefront/internal/models"
	"github.com/techhouse/storefront/internal/repo"
)

func TestObserverMapsEvents(t *testing.T) {
	adminID := uint(1)
	actor := repo.Actor{UserID: &adminID, Username: "root", IP: "10.0.0.1"}

	cases := []struct {
		name        string
		event       repo.Event
		wantAction  string
		wantDetails string
	}{
		{
			"product created",
			repo.Event{Op: repo.OpCreated, Entity: "Product", ID: 3, Name: "Board A", Actor: actor},
			"ADMIN ACTION: Product Created",
			"Identifier: Board A (ID: 3)",
		},
		{
			"product updated",
			repo.Event{Op: repo.OpUpdated, Entity: "Product", ID: 3, Name: "Board A", Actor: actor},
			"ADMIN ACTION: Product Modified",
			"Identifier: Board A (ID: 3)",
		},
		{
			"product deleted",
			repo.Event{Op: repo.OpDeleted, Entity: "Product", ID: 3, Name: "Board A", Actor: actor},
			"ADMIN ACTION: Product Deleted",
			"Identifier: Board A (ID: 3)",
		},
		{
			"user promoted",
			repo.Event{Op: repo.OpUpdated, Entity: "User", ID: 9, Name: "bob", Detail: "Updated status for bob. Staff: true", Actor: actor},
			"ADMIN ACTION: User Permissions Modified",
			"Updated status for bob. Staff: true",
		},
		{
			"user deleted",
			repo.Event{Op: repo.OpDeleted, Entity: "User", ID: 9, Name: "bob", Detail: "Deleted account: bob", Actor: actor},
			"ADMIN ACTION: User Deleted",
			"Deleted account: bob",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sink, db := newTestSink(t)
			obs := &Observer{Sink: sink}

			obs.Notify(context.Background(), tc.event)

			var logs []models.AuditLog
			require.NoError(t, db.Find(&logs).Error)
			require.Len(t, logs, 1)
			assert.Equal(t, tc.wantAction, logs[0].Action)
			assert.Equal(t, tc.wantDetails, logs[0].Details)
			assert.Equal(t, "10.0.0.1", logs[0].IPAddress)
		})
	}
}
