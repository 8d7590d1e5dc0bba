package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/parts-ledger/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/parts-ledger/pkg/jwt"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testTenantID  = "brand-acme"
	testIssuer    = "parts-ledger-test"
	testExpMin    = 60
)

// tokenForRole genera un JWT del tenant de prueba con el rol indicado.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	return tokenFor(t, testTenantID, role)
}

func tokenFor(t *testing.T, tenantID, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, tenantID, role, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

// ──────────────────────────────────────────────────────────────────────────────
// Matriz de roles sobre el router real
// ──────────────────────────────────────────────────────────────────────────────

func TestRoles_MatrizPorRuta(t *testing.T) {
	f := newAPI(t)
	newPart := map[string]any{"sku": "BAT-9", "name": "Batería", "unit_cost": "10"}

	cases := []struct {
		name   string
		method string
		path   string
		role   string
		body   any
		want   int
	}{
		{"service_center registra movimientos", http.MethodPost, "/api/inventory/movements", pkgjwt.RoleServiceCenter, movementBody("ADD", 3), http.StatusCreated},
		{"service_center consulta el libro", http.MethodGet, "/api/inventory/ledger", pkgjwt.RoleServiceCenter, nil, http.StatusOK},
		{"service_center consulta saldos", http.MethodGet, "/api/inventory/balances", pkgjwt.RoleServiceCenter, nil, http.StatusOK},
		{"service_center lista repuestos", http.MethodGet, "/api/parts", pkgjwt.RoleServiceCenter, nil, http.StatusOK},
		{"service_center no crea repuestos", http.MethodPost, "/api/parts", pkgjwt.RoleServiceCenter, newPart, http.StatusForbidden},
		{"service_center sin analítica", http.MethodGet, "/api/analytics/simulated/abc-xyz", pkgjwt.RoleServiceCenter, nil, http.StatusForbidden},
		{"brand crea repuestos", http.MethodPost, "/api/parts", pkgjwt.RoleBrand, newPart, http.StatusCreated},
		{"brand ve analítica", http.MethodGet, "/api/analytics/simulated/abc-xyz", pkgjwt.RoleBrand, nil, http.StatusOK},
		{"super_admin registra movimientos", http.MethodPost, "/api/inventory/movements", pkgjwt.RoleSuperAdmin, movementBody("ADD", 1), http.StatusCreated},
		{"rol desconocido fuera del libro", http.MethodGet, "/api/inventory/ledger", "auditor", nil, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := f.do(t, tc.method, tc.path, tc.role, tc.body)
			assert.Equal(t, tc.want, resp.StatusCode)
			if tc.want == http.StatusForbidden {
				assert.Equal(t, "FORBIDDEN", body["code"])
			}
		})
	}
}

func TestRoles_TokenSinRol(t *testing.T) {
	f := newAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/inventory/balance?part_id="+testPartID, nil)
	req.Header.Set("Authorization", tokenFor(t, testTenantID, ""))
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "MISSING_ROLE", body["code"])
}

// El tenant sale del token: otra marca con el mismo rol no ve la parte.
func TestRoles_TenantDelToken(t *testing.T) {
	f := newAPI(t)
	resp, _ := f.post(t, movementBody("ADD", 4))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/inventory/balance?part_id="+testPartID, nil)
	req.Header.Set("Authorization", tokenFor(t, "brand-otra", pkgjwt.RoleBrand))
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// AuthMiddleware
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_Credenciales(t *testing.T) {
	app := fiber.New()
	app.Get("/me", apphttp.AuthMiddleware(testJWTSecret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id":   apphttp.GetUserID(c),
			"tenant_id": apphttp.GetTenantID(c),
			"role":      apphttp.GetRole(c),
		})
	})

	expired, err := pkgjwt.Generate(testJWTSecret, testUserID, testTenantID, pkgjwt.RoleBrand, testIssuer, -1)
	require.NoError(t, err)
	otherSecret, err := pkgjwt.Generate("otro-secret", testUserID, testTenantID, pkgjwt.RoleBrand, testIssuer, testExpMin)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   int
		code   string
	}{
		{"sin header", "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"esquema basic", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"token expirado", "Bearer " + expired, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"firma de otro secret", "Bearer " + otherSecret, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"válido", tokenFor(t, "brand-zeta", pkgjwt.RoleServiceCenter), http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.want, resp.StatusCode)
			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tc.code != "" {
				assert.Equal(t, tc.code, body["code"])
				return
			}
			assert.Equal(t, testUserID, body["user_id"])
			assert.Equal(t, "brand-zeta", body["tenant_id"])
			assert.Equal(t, pkgjwt.RoleServiceCenter, body["role"])
		})
	}
}

func TestJWT_ClaimsDelPortal(t *testing.T) {
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, testTenantID, pkgjwt.RoleServiceCenter, testIssuer, testExpMin)
	require.NoError(t, err)

	claims, err := pkgjwt.Parse(testJWTSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, testTenantID, claims.TenantID)
	assert.Equal(t, pkgjwt.RoleServiceCenter, claims.Role)
	assert.Equal(t, testUserID, claims.Subject)

	_, err = pkgjwt.Generate("", testUserID, testTenantID, pkgjwt.RoleBrand, testIssuer, testExpMin)
	assert.Error(t, err)
}
