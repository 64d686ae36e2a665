package main

import (
	"errors"
	"strings"

	"academy/backend/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// addUser updates or creates a models.User
func (a *admin) addUser(email, name, pwd string, isAdmin bool) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = a.db.Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Email:              email,
			Role:               models.RoleStudent,
			SubscriptionStatus: models.SubscriptionFree,
		}
	}
	if name != "" {
		user.FullName = strings.TrimSpace(name)
	}
	if isAdmin {
		user.Role = models.RoleAdmin
	}
	user.PasswordHash = string(hash)

	if err := a.db.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
