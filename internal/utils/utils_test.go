// internal/utils/utils_test.go
package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type moneyInput struct {
	Code   string  `validate:"required,contract_code"`
	Amount float64 `validate:"money"`
}

func TestValidateStruct_CustomRules(t *testing.T) {
	tests := []struct {
		name  string
		input moneyInput
		tags  []string
	}{
		{"valid", moneyInput{Code: "MENOR_CUANTIA", Amount: 7212.61}, nil},
		{"lowercase code", moneyInput{Code: "menor", Amount: 1}, []string{"contract_code"}},
		{"three decimals", moneyInput{Code: "LICITACION", Amount: 10.005}, []string{"money"}},
		{"negative amount", moneyInput{Code: "LICITACION", Amount: -1}, []string{"money"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.input)
			if tt.tags == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var tags []string
			for _, e := range GetValidationErrors(err) {
				tags = append(tags, e.Tag)
			}
			assert.Equal(t, tt.tags, tags)
		})
	}
}

func TestJWT_RoundTrip(t *testing.T) {
	SetJWTSecret("test-secret")
	SetJWTIssuer("test-idp")

	userID, deptID := uuid.New(), uuid.New()
	token, err := GenerateJWT(userID, deptID, RoleAdmin, 1)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, deptID.String(), claims.DepartmentID)
	assert.Equal(t, RoleAdmin, claims.Role)

	SetJWTIssuer("other-idp")
	_, err = ValidateJWT(token)
	assert.Error(t, err)

	SetJWTIssuer("test-idp")
	SetJWTSecret("rotated")
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestHashBytes(t *testing.T) {
	sum := HashBytes([]byte("acta"))
	assert.Len(t, sum, 64)
	assert.True(t, ValidateFileHash([]byte("acta"), sum))
	assert.False(t, ValidateFileHash([]byte("acta2"), sum))
}

func TestGetPaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query string
		want  PaginationParams
	}{
		{"", PaginationParams{Page: 1, Limit: 20, Sort: "created_at", Order: "desc"}},
		{"page=3&limit=50&sort=amount&order=asc&search=vias", PaginationParams{Page: 3, Limit: 50, Sort: "amount", Order: "asc", Search: "vias"}},
		{"page=0&limit=500&order=sideways", PaginationParams{Page: 1, Limit: 20, Sort: "created_at", Order: "desc"}},
		{"page=x&limit=y", PaginationParams{Page: 1, Limit: 20, Sort: "created_at", Order: "desc"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/v1/contracts?"+tt.query, nil)
			assert.Equal(t, tt.want, GetPaginationParams(c))
		})
	}
}

func TestCreatePaginationResult(t *testing.T) {
	result := CreatePaginationResult([]int{1, 2}, 41, PaginationParams{Page: 2, Limit: 20})
	assert.Equal(t, 3, result.TotalPages)

	result = CreatePaginationResult(nil, 0, PaginationParams{Page: 1})
	assert.Equal(t, 1, result.TotalPages)
}

func TestSetCurrencyScale(t *testing.T) {
	t.Cleanup(func() { SetCurrencyScale(2) })

	SetCurrencyScale(0)
	assert.Error(t, ValidateStruct(moneyInput{Code: "LICITACION", Amount: 10.5}))
	assert.NoError(t, ValidateStruct(moneyInput{Code: "LICITACION", Amount: 10}))

	SetCurrencyScale(3)
	assert.NoError(t, ValidateStruct(moneyInput{Code: "LICITACION", Amount: 10.005}))
}
