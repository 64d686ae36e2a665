package utils

import (
	"net/http/httptest"
	"testing"
	"time"

	"academy/backend/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.JWTSecret = "testsecret"
	return cfg
}

func TestGenerateAndParseJWTToken(t *testing.T) {
	cfg := testConfig()

	token, session, err := GenerateJWTToken(42, "ada@academy.dev", "student", cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, session.TokenID)

	parsed, err := ParseJWTToken(token, cfg)
	require.NoError(t, err)
	assert.Equal(t, uint(42), parsed.UserID)
	assert.Equal(t, "ada@academy.dev", parsed.Email)
	assert.Equal(t, session.TokenID, parsed.TokenID)
	assert.WithinDuration(t, session.ExpiresAt, parsed.ExpiresAt, time.Second)
}

func TestParseJWTTokenRejectsForeignSecret(t *testing.T) {
	cfg := testConfig()
	token, _, err := GenerateJWTToken(1, "a@b.c", "student", cfg)
	require.NoError(t, err)

	other := testConfig()
	other.JWTSecret = "another"
	_, err = ParseJWTToken(token, other)
	assert.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	cfg := testConfig()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(TokenFromRequest(c, cfg))
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	resp, err := app.Test(req)
	require.NoError(t, err)
	body := make([]byte, 16)
	n, _ := resp.Body.Read(body)
	assert.Equal(t, "abc.def", string(body[:n]))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Cookie", cfg.CookieName+"=from-cookie")
	resp, err = app.Test(req)
	require.NoError(t, err)
	n, _ = resp.Body.Read(body)
	assert.Equal(t, "from-cookie", string(body[:n]))
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	type input struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
	}

	fields := ValidateStruct(&input{Email: "nope", Password: "123"})
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")

	assert.Nil(t, ValidateStruct(&input{Email: "a@b.co", Password: "123456"}))
}

func TestInitDBSQLiteMigrates(t *testing.T) {
	cfg := testConfig()
	cfg.DBDriver = "sqlite"
	cfg.SQLitePath = "file:utils_test?mode=memory&cache=shared"

	db, err := InitDB(cfg)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	assert.True(t, db.Migrator().HasTable("user_progress"))
}

func TestInitDBUnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.DBDriver = "oracle"
	_, err := InitDB(cfg)
	assert.Error(t, err)
}
