package handler

import (
	"context"
	"net/http"
	"testing"

	identityapp "github.com/garmentflow/backend/internal/application/identity"
	"github.com/garmentflow/backend/internal/domain/identity"
	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAccountUseCases implements AccountUseCases for testing
type MockAccountUseCases struct {
	mock.Mock
}

func (m *MockAccountUseCases) account(args mock.Arguments) (*identityapp.AccountResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityapp.AccountResponse), args.Error(1)
}

func (m *MockAccountUseCases) Register(ctx context.Context, id identity.Identity, input identityapp.RegisterInput) (*identityapp.AccountResponse, error) {
	return m.account(m.Called(ctx, id, input))
}

func (m *MockAccountUseCases) Me(ctx context.Context, id identity.Identity) (*identityapp.MeResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityapp.MeResponse), args.Error(1)
}

func (m *MockAccountUseCases) List(ctx context.Context, id identity.Identity, input identityapp.ListAccountsInput) (*shared.Paginated[identityapp.AccountResponse], error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[identityapp.AccountResponse]), args.Error(1)
}

func (m *MockAccountUseCases) UpdateStatus(ctx context.Context, id identity.Identity, accountID uuid.UUID, input identityapp.UpdateStatusInput) (*identityapp.AccountResponse, error) {
	return m.account(m.Called(ctx, id, accountID, input))
}

func (m *MockAccountUseCases) ChangeRole(ctx context.Context, id identity.Identity, accountID uuid.UUID, role identity.Role) (*identityapp.AccountResponse, error) {
	return m.account(m.Called(ctx, id, accountID, role))
}

var testAdmin = identity.Identity{UID: "admin-uid", Email: "admin@garmentflow.com"}

func setupAccountRouter(accounts AccountUseCases, id *identity.Identity) *gin.Engine {
	middleware.SetupValidator()
	r := gin.New()
	if id != nil {
		r.Use(withIdentity(*id))
	}
	h := NewAccountHandler(accounts)
	g := r.Group("/api/v1/accounts")
	g.POST("/register", h.Register)
	g.GET("/me", h.Me)
	g.GET("", h.List)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.PATCH("/:id/role", h.ChangeRole)
	return r
}

func TestAccountHandler_Register(t *testing.T) {
	t.Run("registers a pending manager", func(t *testing.T) {
		accounts := new(MockAccountUseCases)
		r := setupAccountRouter(accounts, &testBuyer)
		accounts.On("Register", mock.Anything, testBuyer, identityapp.RegisterInput{Name: "Karim", Role: identity.RoleManager}).
			Return(&identityapp.AccountResponse{UID: testBuyer.UID, Role: "manager", Status: "pending"}, nil)

		w := doJSON(r, http.MethodPost, "/api/v1/accounts/register", map[string]string{"name": "Karim", "role": "manager"})

		assert.Equal(t, http.StatusCreated, w.Code)
		data := decodeResponse(t, w).Data.(map[string]any)
		assert.Equal(t, "pending", data["status"])
		accounts.AssertExpectations(t)
	})

	t.Run("admin cannot be self-assigned", func(t *testing.T) {
		accounts := new(MockAccountUseCases)
		r := setupAccountRouter(accounts, &testBuyer)

		w := doJSON(r, http.MethodPost, "/api/v1/accounts/register", map[string]string{"name": "Karim", "role": "admin"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		accounts.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("second registration conflicts", func(t *testing.T) {
		accounts := new(MockAccountUseCases)
		r := setupAccountRouter(accounts, &testBuyer)
		accounts.On("Register", mock.Anything, testBuyer, mock.Anything).
			Return(nil, shared.NewConflictError("Account already registered"))

		w := doJSON(r, http.MethodPost, "/api/v1/accounts/register", map[string]string{"name": "Karim"})

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestAccountHandler_Me(t *testing.T) {
	accounts := new(MockAccountUseCases)
	r := setupAccountRouter(accounts, &testBuyer)
	accounts.On("Me", mock.Anything, testBuyer).Return(&identityapp.MeResponse{
		AccountResponse: identityapp.AccountResponse{UID: testBuyer.UID, Role: "buyer", Status: "active"},
		Capabilities:    []string{"order:create", "order:cancel"},
	}, nil)

	w := doJSON(r, http.MethodGet, "/api/v1/accounts/me", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, "buyer", data["role"])
	assert.Len(t, data["capabilities"], 2)
}

func TestAccountHandler_List(t *testing.T) {
	accounts := new(MockAccountUseCases)
	r := setupAccountRouter(accounts, &testAdmin)
	page := shared.NewPaginated([]identityapp.AccountResponse{{UID: "a"}, {UID: "b"}}, 2, 1, 20)
	accounts.On("List", mock.Anything, testAdmin, mock.MatchedBy(func(in identityapp.ListAccountsInput) bool {
		return in.Role != nil && *in.Role == identity.RoleManager &&
			in.Status != nil && *in.Status == identity.AccountStatusPending
	})).Return(&page, nil)

	w := doJSON(r, http.MethodGet, "/api/v1/accounts?role=manager&status=pending", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(2), resp.Meta.Total)
	accounts.AssertExpectations(t)
}

func TestAccountHandler_UpdateStatus(t *testing.T) {
	accountID := uuid.New()

	t.Run("suspends with a reason", func(t *testing.T) {
		accounts := new(MockAccountUseCases)
		r := setupAccountRouter(accounts, &testAdmin)
		accounts.On("UpdateStatus", mock.Anything, testAdmin, accountID, identityapp.UpdateStatusInput{
			Status:        identity.AccountStatusSuspended,
			SuspendReason: "chargebacks",
		}).Return(&identityapp.AccountResponse{ID: accountID, Status: "suspended", SuspendReason: "chargebacks"}, nil)

		w := doJSON(r, http.MethodPatch, "/api/v1/accounts/"+accountID.String()+"/status",
			map[string]string{"status": "suspended", "suspendReason": "chargebacks"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "chargebacks", decodeResponse(t, w).Data.(map[string]any)["suspendReason"])
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		accounts := new(MockAccountUseCases)
		r := setupAccountRouter(accounts, &testBuyer)
		accounts.On("UpdateStatus", mock.Anything, testBuyer, accountID, mock.Anything).
			Return(nil, shared.NewPermissionDeniedError("Admin role required"))

		w := doJSON(r, http.MethodPatch, "/api/v1/accounts/"+accountID.String()+"/status",
			map[string]string{"status": "active"})

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAccountHandler_ChangeRole(t *testing.T) {
	accounts := new(MockAccountUseCases)
	r := setupAccountRouter(accounts, &testAdmin)
	accountID := uuid.New()
	accounts.On("ChangeRole", mock.Anything, testAdmin, accountID, identity.RoleManager).
		Return(&identityapp.AccountResponse{ID: accountID, Role: "manager"}, nil)

	w := doJSON(r, http.MethodPatch, "/api/v1/accounts/"+accountID.String()+"/role", map[string]string{"role": "manager"})

	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPatch, "/api/v1/accounts/"+accountID.String()+"/role", map[string]string{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
