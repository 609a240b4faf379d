package db

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/kentra/backoffice/internal/auth"
	"github.com/kentra/backoffice/internal/models"
)

// DefaultServices are created on first start.
var DefaultServices = []string{
	"Λογοθεραπεία",
	"Εργοθεραπεία",
	"Ψυχοθεραπεία",
	"Ειδική Αγωγή",
}

// SeedUsers creates the admin and demo accounts when the users table is empty.
func SeedUsers(gdb *gorm.DB, adminPassword, demoPassword string) error {
	var n int64
	if err := gdb.Model(&models.User{}).Count(&n).Error; err != nil {
		return errors.Wrap(err, "count users")
	}
	if n > 0 {
		return nil
	}

	seed := []struct{ name, pw, role string }{
		{"admin", adminPassword, models.RoleAdmin},
		{"demo", demoPassword, models.RoleDemo},
	}
	for _, s := range seed {
		hash, err := auth.HashPassword(s.pw)
		if err != nil {
			return errors.Wrapf(err, "hash password for %s", s.name)
		}
		u := models.User{Username: s.name, PasswordHash: hash, Role: s.role, Active: true}
		if err := gdb.Create(&u).Error; err != nil {
			return errors.Wrapf(err, "create user %s", s.name)
		}
	}
	return nil
}

// SeedServices adds any missing default service by name.
func SeedServices(gdb *gorm.DB, names []string) error {
	var existing []string
	if err := gdb.Model(&models.Service{}).Pluck("name", &existing).Error; err != nil {
		return errors.Wrap(err, "list services")
	}
	have := make(map[string]bool, len(existing))
	for _, n := range existing {
		have[n] = true
	}
	for _, n := range names {
		if have[n] {
			continue
		}
		if err := gdb.Create(&models.Service{Name: n}).Error; err != nil {
			return errors.Wrapf(err, "create service %q", n)
		}
	}
	return nil
}
