package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `products:
  - id: "7"
    name: Pepsi 0.5L
    category: Drinks
    price: 9000
  - id: "3"
    name: Fri
    category: Snacks
    price: 12000
knowledge: |
  Wi-Fi password: guest2024
  Hours: 9 to 23
`

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("loud"))
}

func TestParseArgs(t *testing.T) {
	args, err := parseArgs(`{"itemName": "Pepsi", "quantity": 2}`)
	require.NoError(t, err)
	assert.Equal(t, "Pepsi", args["itemName"])

	args, err = parseArgs(`{itemName: 'Fri', quantity: 3,}`)
	require.NoError(t, err)
	assert.Equal(t, "Fri", args["itemName"])

	args, err = parseArgs("  ")
	require.NoError(t, err)
	assert.Empty(t, args)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAskCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o600))
	t.Setenv("CATALOG_FILE", "")

	out, err := runCLI(t, "ask", "addToOrder", `{"itemName": "pepsi", "quantity": 2}`, "--catalog", path, "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Added: 2 x Pepsi 0.5L")

	out, err = runCLI(t, "ask", "queryKnowledgeBase", `{query: "wifi parol"}`, "--catalog", path, "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "guest2024")

	out, err = runCLI(t, "ask", "confirmOrder", "--catalog", path, "--env-file", "")
	require.NoError(t, err)
	assert.NotContains(t, out, "navigate", "an empty cart does not go to checkout")

	_, err = runCLI(t, "ask", "orderPizza", "--catalog", path, "--env-file", "")
	assert.ErrorContains(t, err, "unknown tool")

	_, err = runCLI(t, "ask", "getCartStatus", "--env-file", "")
	assert.ErrorContains(t, err, "catalog file is required")
}
