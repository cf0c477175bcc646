package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/qrestaurant/backoffice/apperrors"
	"github.com/qrestaurant/backoffice/models"
)

var userSortable = map[string]bool{
	"id":         true,
	"name":       true,
	"email":      true,
	"created_at": true,
}

// --------------------------------------------------------------------- users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.Name == "" || user.Email == "" || user.Password == "" {
		return apperrors.New(apperrors.Validation, "user name, email and password are required")
	}

	return s.inTx(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return translate(err)
		}
		if count > 0 {
			return apperrors.Newf(apperrors.Validation, "email %s is already registered", user.Email)
		}

		return translate(tx.Create(user).Error)
	})
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var user models.User
	if err := s.db.WithContext(tctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var user models.User
	if err := s.db.WithContext(tctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

type UserPatch struct {
	Name     *string
	Email    *string
	Password *string // already hashed by the caller
	Active   *bool
}

func (s *Store) UpdateUser(ctx context.Context, id uint, patch UserPatch) (*models.User, error) {
	var user models.User

	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return translate(err)
		}

		if patch.Name != nil {
			if *patch.Name == "" {
				return apperrors.New(apperrors.Validation, "user name is required")
			}
			user.Name = *patch.Name
		}
		if patch.Email != nil && *patch.Email != user.Email {
			var count int64
			if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", *patch.Email, id).Count(&count).Error; err != nil {
				return translate(err)
			}
			if count > 0 {
				return apperrors.Newf(apperrors.Validation, "email %s is already registered", *patch.Email)
			}
			user.Email = *patch.Email
		}
		if patch.Password != nil {
			user.Password = *patch.Password
		}
		if patch.Active != nil {
			user.Active = *patch.Active
		}

		return translate(tx.Save(&user).Error)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.Newf(apperrors.NotFound, "user %d not found", id)
		}

		// Drop the user's role assignments with it.
		return translate(tx.Where("user_id = ?", id).Delete(&models.RolesUsers{}).Error)
	})
}

func (s *Store) ListUsers(ctx context.Context, opts ListOptions) ([]models.User, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var users []models.User
	q := opts.apply(s.db.WithContext(tctx), userSortable)
	if err := q.Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}

// --------------------------------------------------------------------- roles

func (s *Store) CreateRole(ctx context.Context, role *models.Role) error {
	if role.Name == "" {
		return apperrors.New(apperrors.Validation, "role name is required")
	}

	return s.inTx(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Role{}).Where("name = ?", role.Name).Count(&count).Error; err != nil {
			return translate(err)
		}
		if count > 0 {
			return apperrors.Newf(apperrors.Validation, "role %s already exists", role.Name)
		}

		return translate(tx.Create(role).Error)
	})
}

func (s *Store) GetRole(ctx context.Context, id uint) (*models.Role, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var role models.Role
	if err := s.db.WithContext(tctx).First(&role, id).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var role models.Role
	if err := s.db.WithContext(tctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

type RolePatch struct {
	Name        *string
	Description *string
}

func (s *Store) UpdateRole(ctx context.Context, id uint, patch RolePatch) (*models.Role, error) {
	var role models.Role

	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&role, id).Error; err != nil {
			return translate(err)
		}

		if patch.Name != nil {
			if *patch.Name == "" {
				return apperrors.New(apperrors.Validation, "role name is required")
			}
			var count int64
			if err := tx.Model(&models.Role{}).Where("name = ? AND id <> ?", *patch.Name, id).Count(&count).Error; err != nil {
				return translate(err)
			}
			if count > 0 {
				return apperrors.Newf(apperrors.Validation, "role %s already exists", *patch.Name)
			}
			role.Name = *patch.Name
		}
		if patch.Description != nil {
			role.Description = *patch.Description
		}

		return translate(tx.Save(&role).Error)
	})
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (s *Store) DeleteRole(ctx context.Context, id uint) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		var assigned int64
		if err := tx.Model(&models.RolesUsers{}).Where("role_id = ?", id).Count(&assigned).Error; err != nil {
			return translate(err)
		}
		if assigned > 0 {
			return apperrors.Newf(apperrors.Conflict, "role %d is assigned to %d user(s)", id, assigned)
		}

		res := tx.Delete(&models.Role{}, id)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.Newf(apperrors.NotFound, "role %d not found", id)
		}
		return nil
	})
}

func (s *Store) ListRoles(ctx context.Context, opts ListOptions) ([]models.Role, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var roles []models.Role
	q := opts.apply(s.db.WithContext(tctx), map[string]bool{"id": true, "name": true})
	if err := q.Find(&roles).Error; err != nil {
		return nil, translate(err)
	}
	return roles, nil
}

// --------------------------------------------------------- role assignments

// AssignRole links a user to a role. Idempotent: assigning twice is a no-op.
func (s *Store) AssignRole(ctx context.Context, userID, roleID uint) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return apperrors.Newf(apperrors.Validation, "user %d does not exist", userID)
		}
		var role models.Role
		if err := tx.First(&role, roleID).Error; err != nil {
			return apperrors.Newf(apperrors.Validation, "role %d does not exist", roleID)
		}

		var count int64
		if err := tx.Model(&models.RolesUsers{}).Where("user_id = ? AND role_id = ?", userID, roleID).Count(&count).Error; err != nil {
			return translate(err)
		}
		if count > 0 {
			return nil
		}

		return translate(tx.Create(&models.RolesUsers{UserID: userID, RoleID: roleID}).Error)
	})
}

func (s *Store) RevokeRole(ctx context.Context, userID, roleID uint) error {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	res := s.db.WithContext(tctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&models.RolesUsers{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Newf(apperrors.NotFound, "user %d does not hold role %d", userID, roleID)
	}
	return nil
}

// RoleNamesForUser resolves role membership through the association table.
func (s *Store) RoleNamesForUser(ctx context.Context, userID uint) ([]string, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var names []string
	err := s.db.WithContext(tctx).
		Model(&models.RolesUsers{}).
		Select("roles.name").
		Joins("JOIN roles ON roles.id = roles_users.role_id").
		Where("roles_users.user_id = ?", userID).
		Scan(&names).Error
	if err != nil {
		return nil, translate(err)
	}
	return names, nil
}
