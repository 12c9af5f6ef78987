package contact

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pingguard/internal/api"
	"pingguard/internal/console"
	"pingguard/internal/models"
	"pingguard/pkg/errors"
	"pingguard/pkg/util"
)

// Registry is the client for the emergency-contact set. Contacts are created
// and deleted only; every mutation is followed by a full re-fetch so the
// returned list is always the server's truth.
type Registry struct {
	api    *api.Client
	dialog console.Dialog
	log    *zap.Logger
}

func NewRegistry(client *api.Client, dialog console.Dialog, log *zap.Logger) *Registry {
	return &Registry{api: client, dialog: dialog, log: log}
}

// List returns all contacts for the current user, empty slice if none.
func (r *Registry) List(ctx context.Context) ([]models.EmergencyContact, error) {
	contacts := []models.EmergencyContact{}
	if err := r.api.Get(ctx, "/emergency-contacts", &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

// Add validates the phone number client-side, creates the contact, and
// returns the re-fetched list. A validation failure makes no network call.
func (r *Registry) Add(ctx context.Context, name, phoneNumber, relationship string) ([]models.EmergencyContact, error) {
	if name == "" || phoneNumber == "" || relationship == "" {
		return nil, errors.Validation("name, phone number and relationship are required")
	}
	if !util.ValidMobile(phoneNumber) {
		return nil, errors.Validation("phone number must match 010-XXXX-XXXX")
	}

	err := r.api.Post(ctx, "/emergency-contacts", map[string]string{
		"name":         name,
		"phoneNumber":  phoneNumber,
		"relationship": relationship,
	}, nil)
	if err != nil {
		return nil, err
	}

	r.log.Info("contact added", zap.String("name", name))
	return r.List(ctx)
}

// Remove deletes a contact after explicit confirmation and returns the
// re-fetched list. Declining the confirmation issues no call and returns the
// list unchanged (nil).
func (r *Registry) Remove(ctx context.Context, id int64) ([]models.EmergencyContact, error) {
	if !r.dialog.Confirm("Delete this contact?") {
		return nil, nil
	}

	if err := r.api.Delete(ctx, fmt.Sprintf("/emergency-contacts/%d", id)); err != nil {
		return nil, err
	}

	r.log.Info("contact removed", zap.Int64("id", id))
	return r.List(ctx)
}
