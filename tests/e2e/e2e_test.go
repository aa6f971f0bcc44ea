//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	baseURL = getEnv("FLEETWORKS_API_URL", "http://127.0.0.1:8080")
	apiBase = baseURL + "/api/v1"

	// The bootstrap admin credentials must match FW_BOOTSTRAP_ADMIN_USERNAME
	// and FW_BOOTSTRAP_ADMIN_PASSWORD of the server under test.
	adminUsername = getEnv("FW_E2E_ADMIN_USERNAME", "root")
	adminPassword = getEnv("FW_E2E_ADMIN_PASSWORD", "bootstrap-admin-pw-1")
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

type TestClient struct {
	httpClient *http.Client
	token      string
}

func NewTestClient() *TestClient {
	return &TestClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *TestClient) Do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.httpClient.Do(req)
}

// Login authenticates against the API and stores the bearer token on the
// client for all subsequent requests.
func (c *TestClient) Login(t *testing.T, username, password string) {
	t.Helper()

	resp, err := c.Do("POST", apiBase+"/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "login failed for %s", username)

	var loginResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	require.NotEmpty(t, loginResp.Token)
	c.token = loginResp.Token
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestE2E_Workflows(t *testing.T) {
	suffix := time.Now().Unix()

	// State shared between subtests
	var (
		companyAID      string
		companyBID      string
		managerAName    = fmt.Sprintf("manager-a-%d", suffix)
		managerBName    = fmt.Sprintf("manager-b-%d", suffix)
		managerPassword = "manager_pass_123"
		machineAID      string
		maintenanceAID  string
		invoiceAID      string
	)

	admin := NewTestClient()
	managerA := NewTestClient()
	managerB := NewTestClient()

	// 1. Admin provisions two companies, each with a fleet manager.
	t.Run("Admin Provisioning Flow", func(t *testing.T) {
		admin.Login(t, adminUsername, adminPassword)

		for _, tc := range []struct {
			name      string
			manager   string
			companyID *string
		}{
			{fmt.Sprintf("Acme Logistics %d", suffix), managerAName, &companyAID},
			{fmt.Sprintf("Borealis Mining %d", suffix), managerBName, &companyBID},
		} {
			resp, err := admin.Do("POST", apiBase+"/companies", map[string]string{
				"name":          tc.name,
				"contact_email": "ops@example.com",
			})
			require.NoError(t, err)
			require.Equal(t, http.StatusCreated, resp.StatusCode)

			created := decodeJSON[struct {
				ID string `json:"id"`
			}](t, resp)
			require.NotEmpty(t, created.ID)
			*tc.companyID = created.ID

			resp, err = admin.Do("POST", apiBase+"/users", map[string]string{
				"username":   tc.manager,
				"email":      tc.manager + "@example.com",
				"password":   managerPassword,
				"role":       "fleet_manager",
				"company_id": created.ID,
			})
			require.NoError(t, err)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
		}

		t.Logf("Created companies %s and %s", companyAID, companyBID)
	})

	// 2. Fleet manager registers a machine and schedules maintenance.
	t.Run("Fleet Manager Flow", func(t *testing.T) {
		require.NotEmpty(t, companyAID)

		managerA.Login(t, managerAName, managerPassword)

		resp, err := managerA.Do("POST", apiBase+"/machines", map[string]string{
			"kind":          "truck",
			"name":          "Volvo FH16",
			"serial_number": fmt.Sprintf("SN-%d", suffix),
			"registration":  "AB-123-CD",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		machine := decodeJSON[struct {
			ID        string `json:"id"`
			CompanyID string `json:"company_id"`
		}](t, resp)
		assert.Equal(t, companyAID, machine.CompanyID)
		machineAID = machine.ID

		resp, err = managerA.Do("POST", apiBase+"/machines/"+machineAID+"/maintenances", map[string]any{
			"description":  "Oil change and brake inspection",
			"scheduled_at": time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		maintenance := decodeJSON[struct {
			ID string `json:"id"`
		}](t, resp)
		maintenanceAID = maintenance.ID

		// Completing with no body defaults the completion time to now.
		resp, err = managerA.Do("POST", apiBase+"/maintenances/"+maintenanceAID+"/complete", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		completed := decodeJSON[struct {
			CompletedAt *time.Time `json:"completed_at"`
		}](t, resp)
		require.NotNil(t, completed.CompletedAt)
	})

	// 3. A manager of another company must not see or touch foreign resources.
	t.Run("Company Isolation", func(t *testing.T) {
		require.NotEmpty(t, machineAID)

		managerB.Login(t, managerBName, managerPassword)

		resp, err := managerB.Do("GET", apiBase+"/machines/"+machineAID, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp, err = managerB.Do("DELETE", apiBase+"/machines/"+machineAID, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp, err = managerB.Do("GET", apiBase+"/companies/"+companyAID, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		// Listing is narrowed, never an error.
		resp, err = managerB.Do("GET", apiBase+"/machines", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		machines := decodeJSON[[]struct {
			CompanyID string `json:"company_id"`
		}](t, resp)
		for _, m := range machines {
			assert.Equal(t, companyBID, m.CompanyID)
		}
	})

	// 4. Admin issues an invoice; the manager can read it but not settle it.
	t.Run("Billing Flow", func(t *testing.T) {
		require.NotEmpty(t, companyAID)

		resp, err := admin.Do("POST", apiBase+"/invoices", map[string]any{
			"company_id": companyAID,
			"lines": []map[string]any{
				{"description": "Monthly fleet subscription", "quantity": 1, "unit_price_cents": 49900},
				{"description": "Maintenance call-out", "quantity": 2, "unit_price_cents": 12500},
			},
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		invoice := decodeJSON[struct {
			ID         string `json:"id"`
			Number     string `json:"number"`
			Status     string `json:"status"`
			TotalCents int64  `json:"total_cents"`
		}](t, resp)
		assert.NotEmpty(t, invoice.Number)
		assert.Equal(t, int64(74900), invoice.TotalCents)
		invoiceAID = invoice.ID

		resp, err = managerA.Do("GET", apiBase+"/invoices/"+invoiceAID, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, err = managerA.Do("POST", apiBase+"/invoices/"+invoiceAID+"/pay", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp, err = admin.Do("POST", apiBase+"/invoices/"+invoiceAID+"/pay", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		paid := decodeJSON[struct {
			Status string `json:"status"`
		}](t, resp)
		assert.Equal(t, "paid", paid.Status)

		// Paid invoices are finalized and cannot be voided.
		resp, err = admin.Do("POST", apiBase+"/invoices/"+invoiceAID+"/void", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}
