package main

import (
	"context"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/arjunm/goblog/internal/models"
	"github.com/arjunm/goblog/internal/store"
)

// seedAdmin creates the default admin account on first startup. Existing
// admins (whatever their credentials) suppress seeding.
func seedAdmin(ctx context.Context, users *store.UserStore) error {
	exists, err := users.HasAdmin(ctx)
	if err != nil {
		return err
	}
	if exists {
		log.Println("Admin user already exists, skipping seeding")
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("Admin123!"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &models.User{
		Username:    "admin",
		Email:       "admin@example.com",
		Password:    string(hashed),
		Role:        models.RoleAdmin,
		Permissions: models.AllPermissions,
		Profile: models.Profile{
			FirstName: "Admin",
			LastName:  "User",
			Bio:       "System Administrator",
		},
		IsActive:   true,
		AdminNotes: "Default admin account created on initialization",
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	log.Println("Admin user seeded successfully")
	return nil
}
