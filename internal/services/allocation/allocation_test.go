package allocation

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/armory-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/armory-tracker/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) ReadWeapon(ctx context.Context, id string) (*models.Weapon, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Weapon), args.Error(1)
}

func (m *RepoMock) ListActiveWeaponTypes(ctx context.Context, userUID string) ([]models.WeaponType, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WeaponType), args.Error(1)
}

func (m *RepoMock) CreateAllocation(ctx context.Context, entry models.Allocation, weaponType models.WeaponType) (string, error) {
	args := m.Called(ctx, entry, weaponType)
	return args.String(0), args.Error(1)
}

func (m *RepoMock) GetAllocation(ctx context.Context, id string) (*models.Allocation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Allocation), args.Error(1)
}

func (m *RepoMock) CloseAllocation(ctx context.Context, allocationID string, returnedAt time.Time,
	maintenanceRequired bool, maintenanceReason string, weaponID string, weaponStatus models.WeaponStatus) error {
	args := m.Called(ctx, allocationID, returnedAt, maintenanceRequired, maintenanceReason, weaponID, weaponStatus)
	return args.Error(0)
}

func (m *RepoMock) ListAllocations(ctx context.Context, userUID string, limit, offset int) ([]*models.ActiveAllocation, error) {
	args := m.Called(ctx, userUID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ActiveAllocation), args.Error(1)
}

func (m *RepoMock) ListAllAllocations(ctx context.Context, limit, offset int) ([]*models.ActiveAllocation, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ActiveAllocation), args.Error(1)
}

func (m *RepoMock) CountWeapons(ctx context.Context) (*models.WeaponStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WeaponStats), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(routingKey string, message any) error {
	return m.Called(routingKey, message).Error(0)
}

type OverdueMock struct{ mock.Mock }

func (m *OverdueMock) CountByClass(ctx context.Context, userUID string, now time.Time) (*models.AllocationStats, error) {
	args := m.Called(ctx, userUID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AllocationStats), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newService(repo *RepoMock, cache *CacheMock, publisher *PublisherMock) *Service {
	return NewService(repo, cache, publisher, new(OverdueMock), newNoopLogger())
}

func TestAllocate(t *testing.T) {
	userUID := uuid.NewString()
	weaponID := uuid.NewString()
	allocationID := uuid.NewString()

	employee := &models.User{UID: userUID, Username: "guard", Role: models.RoleUser}
	pistol := &models.Weapon{ID: weaponID, Type: models.WeaponTypePistol, Status: models.WeaponStatusAvailable}

	t.Run("success for self", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		publisher := new(PublisherMock)

		repo.On("GetUser", mock.Anything, userUID).Return(employee, nil).Once()
		repo.On("ReadWeapon", mock.Anything, weaponID).Return(pistol, nil).Once()
		repo.On("ListActiveWeaponTypes", mock.Anything, userUID).Return([]models.WeaponType{}, nil).Once()
		repo.On("CreateAllocation", mock.Anything, mock.MatchedBy(func(e models.Allocation) bool {
			return e.WeaponID == weaponID && e.UserUID == userUID && e.Status == models.AllocationStatusActive
		}), models.WeaponTypePistol).Return(allocationID, nil).Once()
		publisher.On("Publish", rabbitmq.KeyAllocationCreated, mock.MatchedBy(func(e models.AllocationEvent) bool {
			return e.AllocationID == allocationID && e.WeaponID == weaponID && e.UserUID == userUID
		})).Return(nil).Once()
		cache.On("Invalidate", "weapon:"+weaponID).Return(nil).Once()

		svc := newService(repo, cache, publisher)

		id, err := svc.Allocate(context.Background(), userUID, models.DummyAllocation{WeaponID: weaponID})
		require.NoError(t, err)
		assert.Equal(t, allocationID, id)
		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("success for another employee", func(t *testing.T) {
		targetUID := uuid.NewString()
		target := &models.User{UID: targetUID, Username: "other", Role: models.RoleUser}

		repo := new(RepoMock)
		cache := new(CacheMock)
		publisher := new(PublisherMock)

		repo.On("GetUser", mock.Anything, userUID).Return(employee, nil).Once()
		repo.On("GetUser", mock.Anything, targetUID).Return(target, nil).Once()
		repo.On("ReadWeapon", mock.Anything, weaponID).Return(pistol, nil).Once()
		repo.On("ListActiveWeaponTypes", mock.Anything, targetUID).Return([]models.WeaponType{}, nil).Once()
		repo.On("CreateAllocation", mock.Anything, mock.MatchedBy(func(e models.Allocation) bool {
			return e.UserUID == targetUID
		}), models.WeaponTypePistol).Return(allocationID, nil).Once()
		publisher.On("Publish", rabbitmq.KeyAllocationCreated, mock.Anything).Return(nil).Once()
		cache.On("Invalidate", mock.Anything).Return(nil).Once()

		svc := newService(repo, cache, publisher)

		_, err := svc.Allocate(context.Background(), userUID,
			models.DummyAllocation{WeaponID: weaponID, UserUID: targetUID})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("admin target rejected", func(t *testing.T) {
		adminUID := uuid.NewString()
		admin := &models.User{UID: adminUID, Username: "chief", Role: models.RoleAdmin}

		repo := new(RepoMock)
		repo.On("GetUser", mock.Anything, userUID).Return(employee, nil).Once()
		repo.On("GetUser", mock.Anything, adminUID).Return(admin, nil).Once()
		repo.On("ReadWeapon", mock.Anything, weaponID).Return(pistol, nil).Once()
		repo.On("ListActiveWeaponTypes", mock.Anything, adminUID).Return([]models.WeaponType{}, nil).Once()

		svc := newService(repo, new(CacheMock), new(PublisherMock))

		_, err := svc.Allocate(context.Background(), userUID,
			models.DummyAllocation{WeaponID: weaponID, UserUID: adminUID})
		assert.ErrorIs(t, err, models.ErrAdminNotAllowed)
		repo.AssertNotCalled(t, "CreateAllocation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("weapon not available", func(t *testing.T) {
		allocated := &models.Weapon{ID: weaponID, Type: models.WeaponTypePistol, Status: models.WeaponStatusAllocated}

		repo := new(RepoMock)
		repo.On("GetUser", mock.Anything, userUID).Return(employee, nil).Once()
		repo.On("ReadWeapon", mock.Anything, weaponID).Return(allocated, nil).Once()
		repo.On("ListActiveWeaponTypes", mock.Anything, userUID).Return([]models.WeaponType{}, nil).Once()

		svc := newService(repo, new(CacheMock), new(PublisherMock))

		_, err := svc.Allocate(context.Background(), userUID, models.DummyAllocation{WeaponID: weaponID})
		assert.ErrorIs(t, err, models.ErrWeaponNotAvailable)
	})

	t.Run("second weapon of same type rejected", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetUser", mock.Anything, userUID).Return(employee, nil).Once()
		repo.On("ReadWeapon", mock.Anything, weaponID).Return(pistol, nil).Once()
		repo.On("ListActiveWeaponTypes", mock.Anything, userUID).
			Return([]models.WeaponType{models.WeaponTypePistol}, nil).Once()

		svc := newService(repo, new(CacheMock), new(PublisherMock))

		_, err := svc.Allocate(context.Background(), userUID, models.DummyAllocation{WeaponID: weaponID})
		assert.ErrorIs(t, err, models.ErrTypeLimitReached)
	})

	t.Run("shotgun with rifle on hand rejected", func(t *testing.T) {
		shotgun := &models.Weapon{ID: weaponID, Type: models.WeaponTypeShotgun, Status: models.WeaponStatusAvailable}

		repo := new(RepoMock)
		repo.On("GetUser", mock.Anything, userUID).Return(employee, nil).Once()
		repo.On("ReadWeapon", mock.Anything, weaponID).Return(shotgun, nil).Once()
		repo.On("ListActiveWeaponTypes", mock.Anything, userUID).
			Return([]models.WeaponType{models.WeaponTypeRifle}, nil).Once()

		svc := newService(repo, new(CacheMock), new(PublisherMock))

		_, err := svc.Allocate(context.Background(), userUID, models.DummyAllocation{WeaponID: weaponID})
		assert.ErrorIs(t, err, models.ErrInvalidTypeCombination)
	})

	t.Run("weapon not found", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetUser", mock.Anything, userUID).Return(employee, nil).Once()
		repo.On("ReadWeapon", mock.Anything, weaponID).Return(nil, models.ErrNotFound).Once()

		svc := newService(repo, new(CacheMock), new(PublisherMock))

		_, err := svc.Allocate(context.Background(), userUID, models.DummyAllocation{WeaponID: weaponID})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("race loser gets concurrent modification", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetUser", mock.Anything, userUID).Return(employee, nil).Once()
		repo.On("ReadWeapon", mock.Anything, weaponID).Return(pistol, nil).Once()
		repo.On("ListActiveWeaponTypes", mock.Anything, userUID).Return([]models.WeaponType{}, nil).Once()
		repo.On("CreateAllocation", mock.Anything, mock.Anything, models.WeaponTypePistol).
			Return("", models.ErrConcurrentModification).Once()

		svc := newService(repo, new(CacheMock), new(PublisherMock))

		_, err := svc.Allocate(context.Background(), userUID, models.DummyAllocation{WeaponID: weaponID})
		assert.ErrorIs(t, err, models.ErrConcurrentModification)
	})

	t.Run("publish failure does not fail allocation", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		publisher := new(PublisherMock)

		repo.On("GetUser", mock.Anything, userUID).Return(employee, nil).Once()
		repo.On("ReadWeapon", mock.Anything, weaponID).Return(pistol, nil).Once()
		repo.On("ListActiveWeaponTypes", mock.Anything, userUID).Return([]models.WeaponType{}, nil).Once()
		repo.On("CreateAllocation", mock.Anything, mock.Anything, models.WeaponTypePistol).
			Return(allocationID, nil).Once()
		publisher.On("Publish", rabbitmq.KeyAllocationCreated, mock.Anything).
			Return(assert.AnError).Once()
		cache.On("Invalidate", mock.Anything).Return(nil).Once()

		svc := newService(repo, cache, publisher)

		id, err := svc.Allocate(context.Background(), userUID, models.DummyAllocation{WeaponID: weaponID})
		require.NoError(t, err)
		assert.Equal(t, allocationID, id)
	})
}

func TestReturn(t *testing.T) {
	userUID := uuid.NewString()
	weaponID := uuid.NewString()
	allocationID := uuid.NewString()

	active := &models.Allocation{
		ID:          allocationID,
		WeaponID:    weaponID,
		UserUID:     userUID,
		AllocatedAt: time.Now().Add(-2 * time.Hour),
		Status:      models.AllocationStatusActive,
	}

	t.Run("return to stock", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		publisher := new(PublisherMock)

		repo.On("GetAllocation", mock.Anything, allocationID).Return(active, nil).Once()
		repo.On("CloseAllocation", mock.Anything, allocationID, mock.Anything,
			false, "", weaponID, models.WeaponStatusAvailable).Return(nil).Once()
		publisher.On("Publish", rabbitmq.KeyAllocationReturned, mock.Anything).Return(nil).Once()
		cache.On("Invalidate", "weapon:"+weaponID).Return(nil).Once()

		svc := newService(repo, cache, publisher)

		err := svc.Return(context.Background(), userUID, models.RoleUser, allocationID,
			models.DummyReturn{Destination: "stock"})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("return to maintenance with reason", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		publisher := new(PublisherMock)

		repo.On("GetAllocation", mock.Anything, allocationID).Return(active, nil).Once()
		repo.On("CloseAllocation", mock.Anything, allocationID, mock.Anything,
			true, "jammed extractor", weaponID, models.WeaponStatusMaintenance).Return(nil).Once()
		publisher.On("Publish", rabbitmq.KeyAllocationReturned, mock.Anything).Return(nil).Once()
		cache.On("Invalidate", mock.Anything).Return(nil).Once()

		svc := newService(repo, cache, publisher)

		err := svc.Return(context.Background(), userUID, models.RoleUser, allocationID,
			models.DummyReturn{Destination: "maintenance", MaintenanceReason: "jammed extractor"})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("maintenance without reason rejected", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetAllocation", mock.Anything, allocationID).Return(active, nil).Once()

		svc := newService(repo, new(CacheMock), new(PublisherMock))

		err := svc.Return(context.Background(), userUID, models.RoleUser, allocationID,
			models.DummyReturn{Destination: "maintenance", MaintenanceReason: "   "})
		assert.ErrorIs(t, err, models.ErrReasonRequired)
		repo.AssertNotCalled(t, "CloseAllocation",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not owner rejected", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetAllocation", mock.Anything, allocationID).Return(active, nil).Once()

		svc := newService(repo, new(CacheMock), new(PublisherMock))

		err := svc.Return(context.Background(), uuid.NewString(), models.RoleUser, allocationID,
			models.DummyReturn{Destination: "stock"})
		assert.ErrorIs(t, err, models.ErrNotOwner)
	})

	t.Run("admin can return for anyone", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		publisher := new(PublisherMock)

		repo.On("GetAllocation", mock.Anything, allocationID).Return(active, nil).Once()
		repo.On("CloseAllocation", mock.Anything, allocationID, mock.Anything,
			false, "", weaponID, models.WeaponStatusAvailable).Return(nil).Once()
		publisher.On("Publish", rabbitmq.KeyAllocationReturned, mock.Anything).Return(nil).Once()
		cache.On("Invalidate", mock.Anything).Return(nil).Once()

		svc := newService(repo, cache, publisher)

		err := svc.Return(context.Background(), uuid.NewString(), models.RoleAdmin, allocationID,
			models.DummyReturn{Destination: "stock"})
		require.NoError(t, err)
	})

	t.Run("already returned", func(t *testing.T) {
		returnedAt := time.Now().Add(-time.Hour)
		closed := &models.Allocation{
			ID:         allocationID,
			WeaponID:   weaponID,
			UserUID:    userUID,
			Status:     models.AllocationStatusReturned,
			ReturnedAt: &returnedAt,
		}

		repo := new(RepoMock)
		repo.On("GetAllocation", mock.Anything, allocationID).Return(closed, nil).Once()

		svc := newService(repo, new(CacheMock), new(PublisherMock))

		err := svc.Return(context.Background(), userUID, models.RoleUser, allocationID,
			models.DummyReturn{Destination: "stock"})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("allocation not found", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetAllocation", mock.Anything, allocationID).Return(nil, models.ErrNotFound).Once()

		svc := newService(repo, new(CacheMock), new(PublisherMock))

		err := svc.Return(context.Background(), userUID, models.RoleUser, allocationID,
			models.DummyReturn{Destination: "stock"})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestList(t *testing.T) {
	userUID := uuid.NewString()
	own := []*models.ActiveAllocation{{Allocation: models.Allocation{ID: "a1", UserUID: userUID}}}
	all := []*models.ActiveAllocation{
		{Allocation: models.Allocation{ID: "a1"}},
		{Allocation: models.Allocation{ID: "a2"}},
	}

	t.Run("employee sees own allocations", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("ListAllocations", mock.Anything, userUID, 20, 0).Return(own, nil).Once()

		svc := newService(repo, new(CacheMock), new(PublisherMock))

		got, err := svc.List(context.Background(), userUID, models.RoleUser, 20, 0)
		require.NoError(t, err)
		assert.Equal(t, own, got)
		repo.AssertNotCalled(t, "ListAllAllocations", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin sees all allocations", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("ListAllAllocations", mock.Anything, 20, 0).Return(all, nil).Once()

		svc := newService(repo, new(CacheMock), new(PublisherMock))

		got, err := svc.List(context.Background(), userUID, models.RoleAdmin, 20, 0)
		require.NoError(t, err)
		assert.Equal(t, all, got)
	})
}

func TestStats(t *testing.T) {
	userUID := uuid.NewString()

	t.Run("employee gets own allocation stats only", func(t *testing.T) {
		repo := new(RepoMock)
		overdue := new(OverdueMock)
		overdue.On("CountByClass", mock.Anything, userUID, mock.Anything).
			Return(&models.AllocationStats{Active: 2, Warning: 1}, nil).Once()

		svc := NewService(repo, new(CacheMock), new(PublisherMock), overdue, newNoopLogger())

		got, err := svc.Stats(context.Background(), userUID, models.RoleUser)
		require.NoError(t, err)
		assert.Nil(t, got.Weapons)
		assert.Equal(t, 2, got.Allocations.Active)
		repo.AssertNotCalled(t, "CountWeapons", mock.Anything)
	})

	t.Run("admin gets inventory counters too", func(t *testing.T) {
		repo := new(RepoMock)
		overdue := new(OverdueMock)
		overdue.On("CountByClass", mock.Anything, "", mock.Anything).
			Return(&models.AllocationStats{Active: 5, Overdue: 1}, nil).Once()
		repo.On("CountWeapons", mock.Anything).Return(&models.WeaponStats{
			ByStatus: map[models.WeaponStatus]int{models.WeaponStatusAvailable: 7},
			ByType:   map[models.WeaponType]int{models.WeaponTypePistol: 4},
		}, nil).Once()

		svc := NewService(repo, new(CacheMock), new(PublisherMock), overdue, newNoopLogger())

		got, err := svc.Stats(context.Background(), userUID, models.RoleAdmin)
		require.NoError(t, err)
		require.NotNil(t, got.Weapons)
		assert.Equal(t, 7, got.Weapons.ByStatus[models.WeaponStatusAvailable])
		assert.Equal(t, 5, got.Allocations.Active)
	})
}
