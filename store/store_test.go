package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/qrestaurant/backoffice/apperrors"
	"github.com/qrestaurant/backoffice/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Category{},
		&models.Menu{},
		&models.Desk{},
		&models.Customer{},
		&models.Order{},
		&models.PlaceOrder{},
		&models.DeliveryOrder{},
		&models.Promotion{},
		&models.User{},
		&models.Role{},
		&models.RolesUsers{},
	)
	require.NoError(t, err)
	return New(db)
}

func TestCategoryCRUD(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cat := models.Category{Name: "Drinks"}
	require.NoError(t, s.CreateCategory(ctx, &cat))
	require.NotZero(t, cat.ID)

	got, err := s.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Drinks", got.Name)

	name := "Beverages"
	updated, err := s.UpdateCategory(ctx, cat.ID, CategoryPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Beverages", updated.Name)

	require.NoError(t, s.DeleteCategory(ctx, cat.ID))

	_, err = s.GetCategory(ctx, cat.ID)
	assert.True(t, apperrors.Is(err, apperrors.NotFound))
}

func TestCreateCategoryRequiresName(t *testing.T) {
	s := setupTestStore(t)
	err := s.CreateCategory(context.Background(), &models.Category{})
	assert.True(t, apperrors.Is(err, apperrors.Validation))
}

func TestCreateMenuValidatesCategory(t *testing.T) {
	s := setupTestStore(t)
	err := s.CreateMenu(context.Background(), &models.Menu{
		CategoryID: 42, Name: "Soup", Price: 5,
	})
	assert.True(t, apperrors.Is(err, apperrors.Validation))
}

func TestDeleteCategoryWithMenusConflicts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cat := models.Category{Name: "Mains"}
	require.NoError(t, s.CreateCategory(ctx, &cat))
	require.NoError(t, s.CreateMenu(ctx, &models.Menu{
		CategoryID: cat.ID, Name: "Soup", Price: 5,
	}))

	err := s.DeleteCategory(ctx, cat.ID)
	assert.True(t, apperrors.Is(err, apperrors.Conflict))
}

func TestDeleteMenuWithOpenLinesConflicts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cat := models.Category{Name: "Mains"}
	require.NoError(t, s.CreateCategory(ctx, &cat))
	menu := models.Menu{CategoryID: cat.ID, Name: "Soup", Price: 5}
	require.NoError(t, s.CreateMenu(ctx, &menu))

	customer := models.Customer{Name: "Bo", Email: "bo@example.com", PasswordHash: "x", APIKey: "k"}
	require.NoError(t, s.CreateCustomer(ctx, &customer))
	order := models.Order{CustomerID: customer.ID, Status: models.StatusPlaced}
	require.NoError(t, s.DB().Create(&order).Error)
	require.NoError(t, s.DB().Create(&models.DeliveryOrder{
		OrderID: order.ID, MenuID: menu.ID, Qty: 1, Address: "1 Main St", PriceTotal: 5, Status: models.StatusPlaced,
	}).Error)

	err := s.DeleteMenu(ctx, menu.ID)
	assert.True(t, apperrors.Is(err, apperrors.Conflict))
}

func TestCustomerEmailUniqueness(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := models.Customer{Name: "Ana", Email: "ana@example.com", PasswordHash: "x", APIKey: "k1"}
	require.NoError(t, s.CreateCustomer(ctx, &first))

	second := models.Customer{Name: "Ana B", Email: "ana@example.com", PasswordHash: "x", APIKey: "k2"}
	err := s.CreateCustomer(ctx, &second)
	assert.True(t, apperrors.Is(err, apperrors.Validation))
}

func TestDuplicateKeyTranslatesToValidation(t *testing.T) {
	s := setupTestStore(t)

	// Straight to the driver, bypassing the uniqueness check, the way a write
	// racing past the check would land. The constraint violation must still
	// surface as a typed validation error, not an untyped driver error.
	first := models.Customer{Name: "Ana", Email: "ana@example.com", PasswordHash: "x", APIKey: "k1"}
	require.NoError(t, s.DB().Create(&first).Error)

	second := models.Customer{Name: "Ana B", Email: "ana@example.com", PasswordHash: "x", APIKey: "k2"}
	err := s.DB().Create(&second).Error
	require.Error(t, err)
	assert.True(t, apperrors.Is(translate(err), apperrors.Validation))
}

func TestGetCustomerByAPIKey(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	customer := models.Customer{Name: "Ana", Email: "ana@example.com", PasswordHash: "x", APIKey: "secret-key"}
	require.NoError(t, s.CreateCustomer(ctx, &customer))

	got, err := s.GetCustomerByAPIKey(ctx, "secret-key")
	require.NoError(t, err)
	assert.Equal(t, customer.ID, got.ID)

	_, err = s.GetCustomerByAPIKey(ctx, "wrong-key")
	assert.True(t, apperrors.Is(err, apperrors.NotFound))
}

func TestDeleteDeskWithOpenLinesConflicts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	desk := models.Desk{Name: "T1", Capacity: 2}
	require.NoError(t, s.CreateDesk(ctx, &desk))
	assert.True(t, desk.Available)

	cat := models.Category{Name: "Mains"}
	require.NoError(t, s.CreateCategory(ctx, &cat))
	menu := models.Menu{CategoryID: cat.ID, Name: "Soup", Price: 5}
	require.NoError(t, s.CreateMenu(ctx, &menu))
	customer := models.Customer{Name: "Bo", Email: "bo@example.com", PasswordHash: "x", APIKey: "k"}
	require.NoError(t, s.CreateCustomer(ctx, &customer))
	order := models.Order{CustomerID: customer.ID, Status: models.StatusPlaced}
	require.NoError(t, s.DB().Create(&order).Error)
	require.NoError(t, s.DB().Create(&models.PlaceOrder{
		OrderID: order.ID, DeskID: desk.ID, MenuID: menu.ID, Qty: 1, PriceTotal: 5, Status: models.StatusPlaced,
	}).Error)

	err := s.DeleteDesk(ctx, desk.ID)
	assert.True(t, apperrors.Is(err, apperrors.Conflict))
}

func TestListMenusFiltersAndPages(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	mains := models.Category{Name: "Mains"}
	drinks := models.Category{Name: "Drinks"}
	require.NoError(t, s.CreateCategory(ctx, &mains))
	require.NoError(t, s.CreateCategory(ctx, &drinks))

	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateMenu(ctx, &models.Menu{
			CategoryID: mains.ID, Name: fmt.Sprintf("Dish %d", i), Price: 10,
		}))
	}
	require.NoError(t, s.CreateMenu(ctx, &models.Menu{
		CategoryID: drinks.ID, Name: "Tea", Price: 3,
	}))

	got, err := s.ListMenus(ctx, &mains.ID, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	paged, err := s.ListMenus(ctx, &mains.ID, ListOptions{Limit: 2, Offset: 2, Sort: "id"})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "Dish 2", paged[0].Name)
}

func TestRoleAssignment(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	user := models.User{Name: "Ops", Email: "ops@example.com", Password: "hash", Active: true}
	require.NoError(t, s.CreateUser(ctx, &user))
	role := models.Role{Name: models.RoleAdmin}
	require.NoError(t, s.CreateRole(ctx, &role))

	require.NoError(t, s.AssignRole(ctx, user.ID, role.ID))
	// Idempotent re-assign.
	require.NoError(t, s.AssignRole(ctx, user.ID, role.ID))

	names, err := s.RoleNamesForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleAdmin}, names)

	// Role with members cannot be deleted.
	err = s.DeleteRole(ctx, role.ID)
	assert.True(t, apperrors.Is(err, apperrors.Conflict))

	require.NoError(t, s.RevokeRole(ctx, user.ID, role.ID))
	err = s.RevokeRole(ctx, user.ID, role.ID)
	assert.True(t, apperrors.Is(err, apperrors.NotFound))

	require.NoError(t, s.DeleteRole(ctx, role.ID))
}

func TestUpdateMissingRecordReturnsNotFound(t *testing.T) {
	s := setupTestStore(t)
	name := "x"
	_, err := s.UpdateCategory(context.Background(), 99, CategoryPatch{Name: &name})
	assert.True(t, apperrors.Is(err, apperrors.NotFound))
}
