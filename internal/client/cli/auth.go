package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/tempora-app/tempora/internal/client/store"
	"github.com/tempora-app/tempora/internal/validation"
	"github.com/tempora-app/tempora/pkg/api"
)

func (c *Cli) runRegister(ctx context.Context) error {
	c.io.Println("=== Register ===")

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	if err := validation.ValidateUsername(username); err != nil {
		return err
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return err
	}

	confirm, err := c.io.ReadPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	resp, err := c.apiClient.Register(ctx, api.RegisterRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return err
	}

	c.io.Println("")
	c.io.Printf("Account created for %s (id %s)\n", username, resp.UserID)
	c.io.Println("Run 'tempora login' to sign in.")

	return nil
}

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	tokens, err := c.apiClient.Login(ctx, api.LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return err
	}

	auth := &store.AuthData{
		Username:     username,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    time.Now().Unix() + tokens.ExpiresIn,
	}
	if err := c.store.SaveAuth(ctx, auth); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	c.io.Println("")
	c.io.Printf("Logged in as %s\n", username)

	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	auth, err := c.store.GetAuth(ctx)
	if err != nil {
		if err == store.ErrAuthNotFound {
			c.io.Println("Not logged in.")
			return nil
		}
		return fmt.Errorf("failed to get auth data: %w", err)
	}

	// Best effort: revoke server-side tokens, then always drop the local
	// session.
	if err := c.apiClient.Logout(ctx, auth.AccessToken); err != nil {
		c.io.Printf("Warning: server logout failed: %v\n", err)
	}

	if err := c.store.DeleteAuth(ctx); err != nil && err != store.ErrAuthNotFound {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	c.io.Println("Logged out.")
	return nil
}

func (c *Cli) runStatus(ctx context.Context) error {
	auth, err := c.store.GetAuth(ctx)
	if err != nil {
		if err == store.ErrAuthNotFound {
			c.io.Println("Not logged in.")
			return nil
		}
		return fmt.Errorf("failed to get auth data: %w", err)
	}

	c.io.Printf("Logged in as: %s\n", auth.Username)

	cursor, err := c.store.GetSyncCursor(ctx)
	if err != nil {
		return fmt.Errorf("failed to get sync cursor: %w", err)
	}
	if cursor == "" {
		c.io.Println("Last sync:    never")
	} else {
		c.io.Printf("Last sync:    %s\n", cursor)
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	status, err := c.apiClient.SyncStatus(ctx, token)
	if err != nil {
		return err
	}

	c.io.Printf("Auto-sync:    %v (every %d min)\n", status.AutoSync, status.SyncInterval)
	c.io.Println("Server records:")
	for _, d := range status.Domains {
		c.io.Printf("  %-20s %d\n", d.Domain, d.Count)
	}

	return nil
}
