package config

import (
	"context"
	"fmt"
	"strings"

	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/conductor/internal/vault"
)

// resolveVaultRefs replaces every `vault:` string in k with the secret it
// names.  When no reference is present Vault is never contacted.
func resolveVaultRefs(ctx context.Context, k *koanf.Koanf) error {
	refs := map[string]string{}
	for key, val := range k.All() {
		if s, ok := val.(string); ok && strings.HasPrefix(s, vault.Prefix) {
			refs[key] = s
		}
	}
	if len(refs) == 0 {
		return nil
	}
	if !vault.Configured() {
		return fmt.Errorf("config references vault but VAULT_ADDR is unset (%d keys)", len(refs))
	}

	cli, err := vault.New(ctx, zap.S())
	if err != nil {
		return err
	}
	for key, ref := range refs {
		secret, err := cli.Resolve(ctx, ref)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := k.Set(key, secret); err != nil {
			return err
		}
		zap.S().Debugw("config vault ref resolved", "key", key)
	}
	return nil
}
