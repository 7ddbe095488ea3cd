package openai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/vault/api"
)

// KeySource defines where to resolve the OpenAI API key from
type KeySource string

const (
	KeySourceAuto  KeySource = "auto"
	KeySourceEnv   KeySource = "env"
	KeySourceFile  KeySource = "file"
	KeySourceVault KeySource = "vault"
)

const defaultKeyFile = ".openai_api_key"

// ResolveAPIKey attempts to resolve an OpenAI API key using the specified
// source strategy. If explicitKey is provided and source is Auto or Env, it
// will be used directly. For Auto, the order is: explicit/env -> file -> vault.
func ResolveAPIKey(ctx context.Context, explicitKey string, source KeySource, keyFilePath, vaultPath string) (string, error) {
	// Normalize source
	if source == "" {
		source = KeySourceAuto
	}

	// Expand ~ in keyFilePath if present
	if keyFilePath != "" && strings.HasPrefix(keyFilePath, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			keyFilePath = filepath.Join(home, strings.TrimPrefix(keyFilePath, "~"))
		}
	}

	switch source {
	case KeySourceEnv:
		if explicitKey != "" {
			return explicitKey, nil
		}
		if k := os.Getenv("OPENAI_API_KEY"); k != "" {
			return k, nil
		}
		return "", fmt.Errorf("no API key found in environment")

	case KeySourceFile:
		if keyFilePath == "" {
			if home, err := os.UserHomeDir(); err == nil {
				keyFilePath = filepath.Join(home, defaultKeyFile)
			}
		}
		data, err := os.ReadFile(keyFilePath)
		if err != nil {
			return "", fmt.Errorf("failed to read key file %s: %w", keyFilePath, err)
		}
		key := strings.TrimSpace(string(data))
		if key == "" {
			return "", fmt.Errorf("key file %s is empty", keyFilePath)
		}
		return key, nil

	case KeySourceVault:
		return readKeyFromVault(ctx, vaultPath)

	case KeySourceAuto:
		// 1) explicit or env
		if explicitKey != "" {
			return explicitKey, nil
		}
		if k := os.Getenv("OPENAI_API_KEY"); k != "" {
			return k, nil
		}
		// 2) file
		if key, err := ResolveAPIKey(ctx, "", KeySourceFile, keyFilePath, vaultPath); err == nil && key != "" {
			return key, nil
		}
		// 3) vault, only when a path was configured
		if vaultPath != "" {
			if key, err := ResolveAPIKey(ctx, "", KeySourceVault, keyFilePath, vaultPath); err == nil && key != "" {
				return key, nil
			}
		}
		return "", fmt.Errorf("unable to resolve OpenAI API key (tried env, file, vault)")
	}

	return "", fmt.Errorf("unknown key source: %s", source)
}

// readKeyFromVault reads the "api_key" field from a Vault KV path. The
// client picks up VAULT_ADDR and VAULT_TOKEN from the environment.
func readKeyFromVault(ctx context.Context, vaultPath string) (string, error) {
	if vaultPath == "" {
		return "", fmt.Errorf("no vault path configured")
	}

	client, err := api.NewClient(api.DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("failed to create Vault client: %w", err)
	}

	// Try KV v2 first (common default), then fall back to KV v1
	mountPath, secretPath := parseVaultPath(vaultPath)
	v2Path := fmt.Sprintf("%s/data/%s", mountPath, secretPath)
	if secret, err := client.Logical().ReadWithContext(ctx, v2Path); err == nil && secret != nil {
		// KV v2 wraps the actual data in a "data" field
		if data, ok := secret.Data["data"].(map[string]interface{}); ok {
			return extractAPIKey(data, vaultPath)
		}
	}

	secret, err := client.Logical().ReadWithContext(ctx, vaultPath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret from path %s: %w", vaultPath, err)
	}
	if secret == nil {
		return "", fmt.Errorf("no secret found at path %s", vaultPath)
	}
	return extractAPIKey(secret.Data, vaultPath)
}

func extractAPIKey(data map[string]interface{}, vaultPath string) (string, error) {
	if v, ok := data["api_key"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s, nil
		}
	}
	return "", fmt.Errorf("secret at %s has no api_key field", vaultPath)
}

// parseVaultPath splits a path into mount path and secret path
func parseVaultPath(path string) (string, string) {
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
