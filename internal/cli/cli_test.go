package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"backoffice/internal/cache"
	"backoffice/internal/config"
	"backoffice/internal/database"
	"backoffice/internal/fiscal"
	"backoffice/internal/model"
	"backoffice/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validRules = `rules:
  - uf: SP
    regime: NORMAL
    mode: TRIBUTADO
    icmsRate: 18
    description: SP internal rate
  - uf: RJ
    regime: NORMAL
    mode: ICMS_ST
    mvaRate: "40"
    stReduction: 10.5
  - uf: MG
    regime: SIMPLES
    mode: ISENTO
    reason: Convenio ICMS 52/91
`

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"}, zap.NewNop(), "error")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &Env{DB: db, Cache: cache.NewMemoryCache(), RuleTTL: time.Minute}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(env *Env, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand(func() (*Env, error) { return env, nil })
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func countRules(t *testing.T, env *Env) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.DB.Model(&model.FiscalRule{}).Count(&n).Error)
	return n
}

func TestRootRejectsUnknownFormat(t *testing.T) {
	_, err := run(nil, "defaults", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestDefaults(t *testing.T) {
	out, err := run(nil, "defaults")
	require.NoError(t, err)
	assert.Contains(t, out, "REGIME")
	assert.Contains(t, out, "SIMPLES")
	assert.Contains(t, out, "102")

	out, err = run(nil, "defaults", "--regime", "normal", "--mode", "ICMS_ST", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			Field string `json:"field"`
			Code  string `json:"code"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "cst", resp.Data[0].Field)
	assert.Equal(t, "60", resp.Data[0].Code)

	_, err = run(nil, "defaults", "--regime", "LUCRO")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		out, err := run(nil, "validate", writeFile(t, validRules))
		require.NoError(t, err)
		assert.Contains(t, out, "3 rule(s) valid")
	})

	t.Run("every violation is reported", func(t *testing.T) {
		out, err := run(nil, "validate", writeFile(t, `rules:
  - uf: SP
    regime: NORMAL
    mode: ICMS_ST
  - uf: MG
    regime: SIMPLES
    mode: ISENTO
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 violation(s)")
		assert.Contains(t, out, "rules[0].mvaRate")
		assert.Contains(t, out, "rules[1].reason")
	})

	t.Run("unparseable rate", func(t *testing.T) {
		out, err := run(nil, "validate", writeFile(t, "rules:\n  - uf: SP\n    regime: NORMAL\n    mode: TRIBUTADO\n    icmsRate: eighteen\n"))
		require.Error(t, err)
		assert.Contains(t, out, "rules[0].icmsRate: icmsRate must be a number")
	})

	t.Run("unknown keys are rejected", func(t *testing.T) {
		_, err := run(nil, "validate", writeFile(t, "rules:\n  - uf: SP\n    regme: NORMAL\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "regme")
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := run(nil, "validate", writeFile(t, ""))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no rules found")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := run(nil, "validate", filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}

func TestImport(t *testing.T) {
	t.Run("stores every rule and audits once", func(t *testing.T) {
		env := newTestEnv(t)
		out, err := run(env, "import", writeFile(t, validRules))
		require.NoError(t, err)
		assert.Contains(t, out, "imported 3 rule(s)")
		assert.Equal(t, int64(3), countRules(t, env))

		var audits int64
		require.NoError(t, env.DB.Model(&model.AuditLog{}).Where("action = ?", model.ActionImportFiscalRules).Count(&audits).Error)
		assert.Equal(t, int64(1), audits)
	})

	t.Run("one invalid rule stores none", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := run(env, "import", writeFile(t, validRules+`  - uf: BA
    regime: NORMAL
    mode: ICMS_ST
`))
		require.Error(t, err)
		assert.Zero(t, countRules(t, env))
	})

	t.Run("bumps the rule cache generation", func(t *testing.T) {
		env := newTestEnv(t)
		store := env.ruleStore()
		_, err := store.FindMatching(context.Background(), "SP", "NORMAL", fiscal.PlatformScope())
		require.NoError(t, err)

		_, err = run(env, "import", writeFile(t, validRules))
		require.NoError(t, err)

		rules, err := store.FindMatching(context.Background(), "SP", "NORMAL", fiscal.PlatformScope())
		require.NoError(t, err)
		assert.Len(t, rules, 1)
	})
}

func TestResolve(t *testing.T) {
	env := newTestEnv(t)
	_, err := run(env, "import", writeFile(t, validRules))
	require.NoError(t, err)

	out, err := run(env, "resolve", "--uf", "rj", "--regime", "NORMAL")
	require.NoError(t, err)
	assert.Contains(t, out, `"mode": "ICMS_ST"`)
	assert.Contains(t, out, `"cst": "60"`)
	assert.Contains(t, out, `"mvaRate": 40`)

	_, err = run(env, "resolve", "--uf", "AM", "--regime", "NORMAL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fiscal rule configured")

	_, err = run(env, "resolve", "--uf", "SP")
	require.Error(t, err)

	_, err = run(env, "resolve", "--uf", "SP", "--regime", "NORMAL", "--company", "acme")
	require.Error(t, err)
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)

	out, err := run(env, "create-user", "--email", "Root@Example.com", "--username", "root", "--password", "secret1", "--role", "admin")
	require.NoError(t, err)
	assert.Contains(t, out, "created admin root")

	user, err := repository.NewUserRepository(env.DB).GetByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	assert.Nil(t, user.CompanyID)

	_, err = run(env, "create-user", "--email", "root@example.com", "--username", "root2", "--password", "secret1", "--role", "admin")
	require.Error(t, err)

	_, err = run(env, "create-user", "--email", "a@b.com", "--username", "a", "--password", "secret1", "--role", "staff")
	require.Error(t, err)

	_, err = run(env, "create-user", "--email", "c@d.com", "--username", "c", "--password", "123", "--role", "admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 6")
}

func TestMigrate(t *testing.T) {
	env := newTestEnv(t)
	out, err := run(env, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date")

	cmd := NewRootCommand(nil)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"migrate"})
	require.Error(t, cmd.Execute())
}
